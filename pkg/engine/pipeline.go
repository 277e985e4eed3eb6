package engine

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/errorsx"
	"github.com/serenehq/serene/pkg/generate"
	"github.com/serenehq/serene/pkg/lang"
	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/notify"
	"github.com/serenehq/serene/pkg/redact"
	"github.com/serenehq/serene/pkg/risk"
)

// Process runs one utterance through the pipeline. Only validation
// aborts; every other failure degrades and the aggregator always
// produces a reply.
func (e *Engine) Process(ctx context.Context, req Request) Response {
	start := time.Now()
	if err := req.Validate(); err != nil {
		e.log.Warn("request_rejected", "error", err.Error())
		return ValidationResponse(err, time.Since(start))
	}

	// A request that outlives its caller still completes; persistence
	// and notification side effects apply regardless.
	ctx = context.WithoutCancel(ctx)
	requestID := uuid.NewString()
	log := e.log.With("request_id", requestID)

	text := req.Text
	if text == "" {
		transcript, err := e.transcribe(ctx, requestID, req.Audio)
		if err != nil {
			log.Error("transcription_failed",
				"reason", string(errorsx.ReasonTranscribe),
				"error", err.Error(),
			)
			return ValidationResponse(errorsx.Invalid("audio", "could not be transcribed"), time.Since(start))
		}
		text = transcript
	}

	session := e.ensureSession(ctx, req)

	norm := e.stageNormalize(ctx, requestID, text)

	// Risk screening and emotion inference are independent; run them
	// concurrently. Neither mutates shared state.
	var (
		assessment risk.Assessment
		fused      emotion.Fused
		both       bool
		stageWG    sync.WaitGroup
	)
	stageWG.Add(2)
	go func() {
		defer stageWG.Done()
		assessment = e.stageRisk(requestID, norm.Text)
	}()
	go func() {
		defer stageWG.Done()
		fused, both = e.stageClassify(ctx, requestID, norm.Text, req.Audio)
	}()
	stageWG.Wait()

	convCtx := e.stageContext(ctx, requestID, session.ID)

	reply := e.stageGenerate(ctx, requestID, generate.PromptInput{
		Emotion:       fused.Emotion,
		Confidence:    fused.Confidence,
		CanonicalText: norm.Text,
		Context:       convCtx,
	})

	bt := e.stageBackTranslate(ctx, requestID, reply.Text, norm.LanguageTag)

	e.stageNotify(ctx, requestID, notify.Input{
		UserID:  req.UserID,
		Emotion: fused.Emotion,
		Risk:    assessment,
		Excerpt: redact.Excerpt(norm.Text, 120),
	})

	now := time.Now()
	userTurn := convo.Message{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Role:       convo.RoleUser,
		Content:    text,
		Emotion:    fused.Emotion,
		Confidence: fused.Confidence,
		CreatedAt:  now,
	}
	assistantTurn := convo.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      convo.RoleAssistant,
		Content:   bt.Text,
		CreatedAt: now,
	}
	e.persistAsync(session, norm.LanguageTag, userTurn, assistantTurn)

	var audio *AudioPayload
	if req.IncludeSynthesizedAudio {
		audio = e.stageSynthesize(ctx, requestID, bt.Text)
	}

	elapsed := time.Since(start)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventRequestDone, "pipeline", requestID, float64(elapsed.Milliseconds())))

	return Aggregate(AggregateInput{
		Session:       session,
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		Fused:         fused,
		BothSignals:   both,
		Reply:         reply,
		Normalized:    norm,
		BackTranslate: bt,
		Audio:         audio,
		Elapsed:       elapsed,
	})
}

// Drain waits for in-flight background persistence. Used on shutdown.
func (e *Engine) Drain() {
	e.wg.Wait()
}

// SessionMessages exposes the stored window for the read endpoint.
func (e *Engine) SessionMessages(ctx context.Context, sessionID string, limit int) ([]convo.Message, error) {
	return e.store.RecentMessages(ctx, sessionID, limit)
}

func (e *Engine) transcribe(ctx context.Context, requestID string, audio []byte) (string, error) {
	if e.transcriber == nil {
		return "", errorsx.Invalid("audio", "no transcriber configured")
	}
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "transcribe", requestID, 0))
	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	transcript, err := e.transcriber.Transcribe(stageCtx, bytes.NewReader(audio))
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "transcribe", requestID, 0))
	return transcript, err
}

func (e *Engine) ensureSession(ctx context.Context, req Request) convo.Session {
	if req.SessionID != "" {
		session, err := e.store.GetSession(ctx, req.SessionID)
		if err != nil {
			e.log.Warn("session_lookup_failed",
				"session_id", req.SessionID,
				"reason", string(errorsx.ReasonStoreRead),
				"error", err.Error(),
			)
		}
		if session != nil {
			return *session
		}
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	session := convo.Session{ID: id, UserID: req.UserID, Language: lang.Canonical}
	if err := e.store.CreateSession(ctx, &session); err != nil {
		e.log.Warn("session_create_failed",
			"session_id", id,
			"reason", string(errorsx.ReasonStoreWrite),
			"error", err.Error(),
		)
	}
	return session
}

func (e *Engine) stageNormalize(ctx context.Context, requestID, text string) lang.Normalized {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "normalize", requestID, 0))
	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	norm := e.normalizer.Normalize(stageCtx, text)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "normalize", requestID, 0))
	return norm
}

func (e *Engine) stageRisk(requestID, canonicalText string) risk.Assessment {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "risk", requestID, 0))
	assessment := e.detector.Detect(canonicalText)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "risk", requestID, 0))
	return assessment
}

// stageClassify obtains the text signal, the voice signal when audio is
// present, and fuses them. Classifier failure degrades to the neutral
// signal rather than surfacing.
func (e *Engine) stageClassify(ctx context.Context, requestID, canonicalText string, audio []byte) (emotion.Fused, bool) {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "classify", requestID, 0))
	defer e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "classify", requestID, 0))

	var (
		textSignal  *emotion.Signal
		voiceSignal *emotion.Signal
		wg          sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
		defer cancel()
		signal, err := e.textClassifier.ClassifyText(stageCtx, canonicalText)
		if err != nil {
			e.log.Warn("text_classification_failed",
				"request_id", requestID,
				"reason", string(errorsx.ReasonClassifyText),
				"error", err.Error(),
			)
			e.obs.RecordEvent(metrics.StageEvent(metrics.EventProviderError, "classify", requestID, 0))
			signal = emotion.NeutralSignal(emotion.SourceText)
		}
		textSignal = &signal
	}()

	if len(audio) > 0 && e.voiceClassify != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
			defer cancel()
			signal, err := e.voiceClassify.ClassifyVoice(stageCtx, bytes.NewReader(audio))
			if err != nil {
				e.log.Warn("voice_classification_failed",
					"request_id", requestID,
					"reason", string(errorsx.ReasonClassifyVoice),
					"error", err.Error(),
				)
				e.obs.RecordEvent(metrics.StageEvent(metrics.EventProviderError, "classify", requestID, 0))
				return
			}
			voiceSignal = &signal
		}()
	}
	wg.Wait()

	return e.fuser.Fuse(textSignal, voiceSignal), textSignal != nil && voiceSignal != nil
}

func (e *Engine) stageContext(ctx context.Context, requestID, sessionID string) convo.Context {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "context", requestID, 0))
	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	convCtx := e.contexts.Load(stageCtx, sessionID)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "context", requestID, 0))
	return convCtx
}

func (e *Engine) stageGenerate(ctx context.Context, requestID string, in generate.PromptInput) generate.Reply {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "generate", requestID, 0))
	reply := e.generator.Generate(ctx, in)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "generate", requestID, 0))
	return reply
}

func (e *Engine) stageBackTranslate(ctx context.Context, requestID, replyText, languageTag string) lang.BackTranslated {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "back_translate", requestID, 0))
	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	bt := e.backTranslator.Render(stageCtx, replyText, languageTag)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "back_translate", requestID, 0))
	return bt
}

func (e *Engine) stageNotify(ctx context.Context, requestID string, in notify.Input) {
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "notify", requestID, 0))
	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	e.notifier.Process(stageCtx, in)
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "notify", requestID, 0))
}

func (e *Engine) stageSynthesize(ctx context.Context, requestID, text string) *AudioPayload {
	if e.synthesizer == nil {
		return nil
	}
	e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageStart, "synthesize", requestID, 0))
	defer e.obs.RecordEvent(metrics.StageEvent(metrics.EventStageDone, "synthesize", requestID, 0))

	stageCtx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	data, err := e.synthesizer.Synthesize(stageCtx, text)
	if err != nil {
		e.log.Warn("synthesis_failed",
			"request_id", requestID,
			"reason", string(errorsx.ReasonSynthesize),
			"error", err.Error(),
		)
		e.obs.RecordEvent(metrics.StageEvent(metrics.EventProviderError, "synthesize", requestID, 0))
		return nil
	}
	return &AudioPayload{Format: "mp3", Data: data}
}

// persistAsync appends the turns in the background. Fire and forget:
// write failures are retried, then logged, and never reach the
// user-visible response.
func (e *Engine) persistAsync(session convo.Session, languageTag string, msgs ...convo.Message) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.stageTimeout)
		defer cancel()

		if session.Language != languageTag {
			err := e.storeRetry.DoCtx(ctx, func(ctx context.Context) error {
				return e.store.UpdateSessionLanguage(ctx, session.ID, languageTag)
			})
			if err != nil {
				e.log.Warn("session_language_update_failed",
					"session_id", session.ID,
					"reason", string(errorsx.ReasonStoreWrite),
					"error", err.Error(),
				)
			}
		}
		for i := range msgs {
			msg := &msgs[i]
			err := e.storeRetry.DoCtx(ctx, func(ctx context.Context) error {
				return e.store.AppendMessage(ctx, msg)
			})
			if err != nil {
				e.log.Warn("message_persist_failed",
					"session_id", session.ID,
					"reason", string(errorsx.ReasonStoreWrite),
					"error", err.Error(),
				)
			}
		}
	}()
}
