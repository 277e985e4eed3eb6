package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/engine"
	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/providers/mock"
)

func newTestServer(t *testing.T) (http.Handler, *convo.MemoryStore) {
	t.Helper()

	store := convo.NewMemoryStore()
	cfg := engine.Config{
		Pipeline: engine.PipelineConfig{StageTimeoutMS: 2000, ContextWindow: 10},
		Alerts:   engine.AlertsConfig{Enabled: true},
	}
	e := engine.NewEngine(cfg, engine.Deps{
		Store:          store,
		Primary:        mock.NewTranslator(mock.TranslatorConfig{Echo: true}),
		Secondary:      mock.NewTranslator(mock.TranslatorConfig{Echo: true}),
		TextClassifier: mock.NewTextClassifier(mock.ClassifierConfig{}),
		Chain: llm.NewChain([]llm.Attempt{
			{ID: "mock", Adapter: mock.NewLLMAdapter(mock.LLMConfig{ResponseText: "I'm here with you."})},
		}, slog.Default()),
		Sender:      &mock.Sender{Delivered: true},
		Transcriber: &mock.Transcriber{Transcript: "I had a hard day"},
	})
	t.Cleanup(func() { e.Drain() })
	return NewRouter(NewHandler(e)), store
}

func TestChatEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"userId":"user-1","text":"I had a hard day"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if resp.AssistantTurn.Content != "I'm here with you." {
		t.Fatalf("assistant turn = %q", resp.AssistantTurn.Content)
	}
}

func TestChatEndpointRejectsMissingUser(t *testing.T) {
	router, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatEndpointRejectsBadJSON(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVoiceEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("pcm bytes")); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := mw.WriteField("userId", "user-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserTurn.Content != "I had a hard day" {
		t.Fatalf("user turn = %q, want transcript", resp.UserTurn.Content)
	}
}

func TestVoiceEndpointRequiresAudioPart(t *testing.T) {
	router, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("userId", "user-1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionMessagesEndpoint(t *testing.T) {
	router, store := newTestServer(t)

	session := convo.Session{ID: "session-1", UserID: "user-1", Language: "en"}
	if err := store.CreateSession(context.Background(), &session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for _, msg := range []convo.Message{
		{ID: "m1", SessionID: "session-1", Role: convo.RoleUser, Content: "hi"},
		{ID: "m2", SessionID: "session-1", Role: convo.RoleAssistant, Content: "hello"},
	} {
		m := msg
		if err := store.AppendMessage(context.Background(), &m); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/session-1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		SessionID string           `json:"sessionId"`
		Messages  []messagePayload `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(payload.Messages))
	}
}

func TestSessionMessagesRejectsBadLimit(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/session-1/messages?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
