package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/generate"
	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/providers/mock"
	"github.com/serenehq/serene/pkg/translate"
)

type testDeps struct {
	store  *convo.MemoryStore
	llm    *mock.LLMAdapter
	sender *mock.Sender
	obs    *metrics.MemoryObserver
}

func newTestEngine(t *testing.T, mutate func(*Config, *Deps)) (*Engine, *testDeps) {
	t.Helper()

	store := convo.NewMemoryStore()
	adapter := mock.NewLLMAdapter(mock.LLMConfig{ResponseText: "I hear you. That sounds really heavy."})
	sender := &mock.Sender{Delivered: true}
	obs := metrics.NewMemoryObserver()

	cfg := Config{
		Pipeline: PipelineConfig{StageTimeoutMS: 2000, ContextWindow: 10},
		Fusion:   FusionConfig{Strategy: "weighted", TextWeight: 0.5, VoiceWeight: 0.5},
		Alerts:   AlertsConfig{Enabled: true},
	}
	deps := Deps{
		Store:          store,
		Primary:        mock.NewTranslator(mock.TranslatorConfig{Echo: true}),
		Secondary:      mock.NewTranslator(mock.TranslatorConfig{Echo: true}),
		TextClassifier: mock.NewTextClassifier(mock.ClassifierConfig{Signal: sadSignal(emotion.SourceText)}),
		Chain:          llm.NewChain([]llm.Attempt{{ID: "mock", Adapter: adapter}}, slog.Default()),
		Sender:         sender,
		Observer:       obs,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	engine := NewEngine(cfg, deps)
	t.Cleanup(func() { engine.Drain() })
	return engine, &testDeps{store: store, llm: adapter, sender: sender, obs: obs}
}

func sadSignal(source emotion.Source) emotion.Signal {
	return emotion.Signal{
		Emotion:      emotion.Sad,
		Confidence:   0.8,
		Distribution: map[emotion.Label]float64{emotion.Sad: 0.8},
		Source:       source,
	}
}

func happySignal(source emotion.Source, conf float64) emotion.Signal {
	return emotion.Signal{
		Emotion:      emotion.Happy,
		Confidence:   conf,
		Distribution: map[emotion.Label]float64{emotion.Happy: conf},
		Source:       source,
	}
}

func TestValidationRejectsMissingUser(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{Text: "hello"})
	if resp.Success {
		t.Fatalf("expected validation failure")
	}
	if resp.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestValidationRejectsEmptyUtterance(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{UserID: "user-1"})
	if resp.Success {
		t.Fatalf("expected validation failure for empty utterance")
	}
}

func TestHappyPathProducesOneReply(t *testing.T) {
	engine, deps := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "I had a rough day at work"})
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if resp.AssistantTurn.Content == "" {
		t.Fatalf("assistant turn must be non-empty")
	}
	if resp.AssistantTurn.IsFallback {
		t.Fatalf("healthy chain must not be marked fallback")
	}
	if resp.Session.ID == "" {
		t.Fatalf("session must be auto-created")
	}
	if deps.llm.Calls != 1 {
		t.Fatalf("llm calls = %d, want 1", deps.llm.Calls)
	}
	if resp.Emotion.Label != string(emotion.Sad) {
		t.Fatalf("emotion = %s, want sad", resp.Emotion.Label)
	}
	if resp.FusedEmotion != nil {
		t.Fatalf("text-only request must not report a fused result")
	}
}

func TestHighRiskJournalsAlertWithoutContact(t *testing.T) {
	engine, deps := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{
		UserID: "user-1",
		Text:   "I feel like giving up, nothing matters",
	})
	if !resp.Success {
		t.Fatalf("high risk must not fail the request: %q", resp.Error)
	}
	alerts := deps.store.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].AlertType != "high_risk" {
		t.Fatalf("alert type = %s", alerts[0].AlertType)
	}
	if len(deps.sender.Sent) != 0 {
		t.Fatalf("no contact registered, nothing should be sent")
	}
}

func TestHighRiskAlertsRegisteredContact(t *testing.T) {
	engine, deps := newTestEngine(t, nil)
	deps.store.SetEmergencyContact(convo.EmergencyContact{
		UserID:               "user-1",
		Name:                 "Nimal",
		Address:              "+94770000000",
		NotificationsEnabled: true,
	})

	engine.Process(context.Background(), Request{
		UserID: "user-1",
		Text:   "I want to end it all",
	})
	if len(deps.sender.Sent) != 1 {
		t.Fatalf("sent = %v, want one delivery", deps.sender.Sent)
	}
	alerts := deps.store.Alerts()
	if len(alerts) != 1 || !alerts[0].WasDelivered {
		t.Fatalf("alert should be journaled as delivered: %+v", alerts)
	}
}

func TestChainExhaustionFiresStaticFallback(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		failing := mock.NewLLMAdapter(mock.LLMConfig{Err: errors.New("provider down")})
		deps.Chain = llm.NewChain([]llm.Attempt{
			{ID: "primary", Adapter: failing},
			{ID: "secondary", Adapter: failing},
		}, slog.Default())
	})

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "I feel so alone"})
	if !resp.Success {
		t.Fatalf("exhausted chain must still succeed: %q", resp.Error)
	}
	if !resp.AssistantTurn.IsFallback {
		t.Fatalf("expected fallback reply")
	}
	if resp.AssistantTurn.Provider != generate.ProviderFallback {
		t.Fatalf("provider = %s, want %s", resp.AssistantTurn.Provider, generate.ProviderFallback)
	}
	if resp.AssistantTurn.Content == "" {
		t.Fatalf("fallback reply must be non-empty")
	}
}

func TestScopeGuardBypassesChain(t *testing.T) {
	engine, deps := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{
		UserID: "user-1",
		Text:   "can you reset my password please",
	})
	if deps.llm.Calls != 0 {
		t.Fatalf("generation chain invoked %d times, want 0", deps.llm.Calls)
	}
	if resp.AssistantTurn.Provider != generate.ProviderScopeGuard {
		t.Fatalf("provider = %s, want %s", resp.AssistantTurn.Provider, generate.ProviderScopeGuard)
	}
	if resp.AssistantTurn.IsFallback {
		t.Fatalf("scope guard is terminal, not a fallback")
	}
}

func TestVoiceRequestFusesBothSignals(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Transcriber = &mock.Transcriber{Transcript: "today was a wonderful day"}
		deps.TextClassifier = mock.NewTextClassifier(mock.ClassifierConfig{Signal: happySignal(emotion.SourceText, 0.85)})
		deps.VoiceClassifier = mock.NewVoiceClassifier(mock.ClassifierConfig{Signal: happySignal(emotion.SourceVoice, 0.78)})
	})

	resp := engine.Process(context.Background(), Request{
		UserID: "user-1",
		Audio:  []byte("pcm audio bytes"),
	})
	if !resp.Success {
		t.Fatalf("voice request failed: %q", resp.Error)
	}
	if resp.FusedEmotion == nil {
		t.Fatalf("expected fused result when both signals exist")
	}
	if resp.FusedEmotion.Label != string(emotion.Happy) {
		t.Fatalf("fused label = %s, want happy", resp.FusedEmotion.Label)
	}
	if math.Abs(resp.FusedEmotion.Confidence-0.815) > 1e-9 {
		t.Fatalf("fused confidence = %f, want 0.815", resp.FusedEmotion.Confidence)
	}
	if resp.UserTurn.Content != "today was a wonderful day" {
		t.Fatalf("user turn = %q, want transcript", resp.UserTurn.Content)
	}
}

func TestTranscriptionFailureIsFatal(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Transcriber = &mock.Transcriber{Err: errors.New("stt unavailable")}
	})

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Audio: []byte("audio")})
	if resp.Success {
		t.Fatalf("unusable audio must surface as a validation failure")
	}
}

func TestClassifierFailureDegradesToNeutral(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.TextClassifier = mock.NewTextClassifier(mock.ClassifierConfig{Err: errors.New("model down")})
	})

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "just checking in"})
	if !resp.Success {
		t.Fatalf("classification failure must degrade, not abort: %q", resp.Error)
	}
	if resp.Emotion.Label != string(emotion.Neutral) {
		t.Fatalf("emotion = %s, want neutral", resp.Emotion.Label)
	}
}

func TestTranslationFallbackMetadata(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Primary = mock.NewTranslator(mock.TranslatorConfig{Err: errors.New("provider down")})
		deps.Secondary = mock.NewTranslator(mock.TranslatorConfig{Text: "hello", SourceLang: "es"})
	})

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "hola"})
	if !resp.Success {
		t.Fatalf("translation fallback must not abort: %q", resp.Error)
	}
	if !resp.Language.UsedFallback {
		t.Fatalf("expected fallback translation metadata")
	}
	if resp.Language.Tag != "es" {
		t.Fatalf("language tag = %s, want es", resp.Language.Tag)
	}
	if !resp.Language.WasTranslated {
		t.Fatalf("expected wasTranslated=true")
	}
}

func TestPersistenceRecordsBothTurns(t *testing.T) {
	engine, deps := newTestEngine(t, nil)

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "I miss my family"})
	engine.Drain()

	msgs, err := deps.store.RecentMessages(context.Background(), resp.Session.ID, 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != convo.RoleUser || msgs[1].Role != convo.RoleAssistant {
		t.Fatalf("unexpected turn order: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].Emotion != emotion.Sad {
		t.Fatalf("user turn emotion = %s, want sad", msgs[0].Emotion)
	}
}

func TestExistingSessionIsReused(t *testing.T) {
	engine, deps := newTestEngine(t, nil)
	seed := convo.Session{ID: "session-1", UserID: "user-1", Language: "en"}
	if err := deps.store.CreateSession(context.Background(), &seed); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	resp := engine.Process(context.Background(), Request{UserID: "user-1", SessionID: "session-1", Text: "hello again"})
	if resp.Session.ID != "session-1" {
		t.Fatalf("session = %s, want session-1", resp.Session.ID)
	}
}

func TestSynthesizedAudioOnRequest(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Synthesizer = &mock.Synthesizer{Audio: []byte("mp3 bytes")}
	})

	resp := engine.Process(context.Background(), Request{
		UserID:                  "user-1",
		Text:                    "tell me something kind",
		IncludeSynthesizedAudio: true,
	})
	if resp.Audio == nil {
		t.Fatalf("expected synthesized audio")
	}
	if string(resp.Audio.Data) != "mp3 bytes" {
		t.Fatalf("audio data = %q", resp.Audio.Data)
	}
}

func TestSynthesisFailureDegrades(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Synthesizer = &mock.Synthesizer{Err: errors.New("tts down")}
	})

	resp := engine.Process(context.Background(), Request{
		UserID:                  "user-1",
		Text:                    "tell me something kind",
		IncludeSynthesizedAudio: true,
	})
	if !resp.Success {
		t.Fatalf("synthesis failure must degrade: %q", resp.Error)
	}
	if resp.Audio != nil {
		t.Fatalf("failed synthesis must omit audio")
	}
}

func TestStageEventsEmitted(t *testing.T) {
	engine, deps := newTestEngine(t, nil)

	engine.Process(context.Background(), Request{UserID: "user-1", Text: "rough week"})

	done := deps.obs.Named(metrics.EventRequestDone)
	if len(done) != 1 {
		t.Fatalf("request_done events = %d, want 1", len(done))
	}
	stages := map[string]bool{}
	for _, ev := range deps.obs.Named(metrics.EventStageDone) {
		stages[ev.Tags["stage"]] = true
	}
	for _, stage := range []string{"normalize", "risk", "classify", "context", "generate", "back_translate", "notify"} {
		if !stages[stage] {
			t.Fatalf("missing stage_done for %s", stage)
		}
	}
}

type promptCaptureAdapter struct {
	mu      sync.Mutex
	systems []string
}

func (a *promptCaptureAdapter) Generate(ctx context.Context, in llm.Context) (llm.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range in.Messages {
		if m.Role == "system" {
			a.systems = append(a.systems, m.Content)
		}
	}
	return llm.Response{Text: `{"translated_text": "ok", "source_language": "si"}`, FinishReason: "stop"}, nil
}

func (a *promptCaptureAdapter) Name() string { return "capture" }

func (a *promptCaptureAdapter) Systems() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.systems...)
}

func TestReplyTranslationPreservesTone(t *testing.T) {
	capture := &promptCaptureAdapter{}
	eng, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Primary = mock.NewTranslator(mock.TranslatorConfig{Err: errors.New("provider down")})
		deps.Secondary = translate.NewLLMTranslator(capture, nil)
	})

	resp := eng.Process(context.Background(), Request{UserID: "u1", Text: "මට අද හරිම දුකයි"})
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if !resp.Language.WasTranslated || resp.Language.Tag != "si" {
		t.Fatalf("expected Sinhala detection, got %+v", resp.Language)
	}

	var toned, plain int
	for _, s := range capture.Systems() {
		if strings.Contains(s, "Preserve the emotional tone") || strings.Contains(s, "Keep the emotional tone") {
			toned++
		} else {
			plain++
		}
	}
	if toned == 0 {
		t.Fatalf("reply translation never carried the tone instruction, prompts: %v", capture.Systems())
	}
	if plain == 0 {
		t.Fatalf("inbound normalization should not carry the tone instruction")
	}
}

type flakyStore struct {
	*convo.MemoryStore
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) AppendMessage(ctx context.Context, m *convo.Message) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("transient write failure")
	}
	s.mu.Unlock()
	return s.MemoryStore.AppendMessage(ctx, m)
}

func TestPersistenceRetriesTransientWrites(t *testing.T) {
	store := &flakyStore{MemoryStore: convo.NewMemoryStore(), failures: 1}
	engine, _ := newTestEngine(t, func(cfg *Config, deps *Deps) {
		deps.Store = store
	})

	resp := engine.Process(context.Background(), Request{UserID: "user-1", Text: "I had a rough day"})
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	engine.Drain()

	msgs, err := store.RecentMessages(context.Background(), resp.Session.ID, 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2 after retry", len(msgs))
	}
}
