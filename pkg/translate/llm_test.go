package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/serenehq/serene/pkg/llm"
)

type sequenceAdapter struct {
	responses []llm.Response
	err       error
	calls     int
	contexts  []llm.Context
}

func (a *sequenceAdapter) Generate(ctx context.Context, in llm.Context) (llm.Response, error) {
	a.contexts = append(a.contexts, in)
	a.calls++
	if a.err != nil {
		return llm.Response{}, a.err
	}
	resp := a.responses[0]
	if len(a.responses) > 1 {
		a.responses = a.responses[1:]
	}
	return resp, nil
}

func (a *sequenceAdapter) Name() string { return "seq" }

func systemPrompt(in llm.Context) string {
	for _, m := range in.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func TestLLMTranslatorParsesStructuredReply(t *testing.T) {
	adapter := &sequenceAdapter{responses: []llm.Response{
		{Text: `{"translated_text": "I feel sad", "source_language": "si"}`},
	}}
	tr := NewLLMTranslator(adapter, nil)

	res, err := tr.Translate(context.Background(), "මට දුකයි", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "I feel sad" || res.SourceLang != "si" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if adapter.calls != 1 {
		t.Fatalf("structured success should take one call, got %d", adapter.calls)
	}
}

func TestLLMTranslatorStripsCodeFence(t *testing.T) {
	adapter := &sequenceAdapter{responses: []llm.Response{
		{Text: "```json\n{\"translated_text\": \"hello\", \"source_language\": \"ta\"}\n```"},
	}}
	tr := NewLLMTranslator(adapter, nil)

	res, err := tr.Translate(context.Background(), "வணக்கம்", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "hello" || res.SourceLang != "ta" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLLMTranslatorRetriesWithPlainPrompt(t *testing.T) {
	adapter := &sequenceAdapter{responses: []llm.Response{
		{Text: "Sure! The translation is not valid JSON."},
		{Text: "I feel sad today"},
	}}
	tr := NewLLMTranslator(adapter, nil)

	res, err := tr.Translate(context.Background(), "මට දුකයි", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "I feel sad today" {
		t.Fatalf("expected raw completion accepted, got %q", res.Text)
	}
	if res.SourceLang != "" {
		t.Fatalf("plain retry carries no detected language, got %q", res.SourceLang)
	}
	if adapter.calls != 2 {
		t.Fatalf("expected structured then plain call, got %d", adapter.calls)
	}
	if strings.Contains(systemPrompt(adapter.contexts[1]), "JSON") {
		t.Fatalf("second call should use the plain instruction: %q", systemPrompt(adapter.contexts[1]))
	}
}

func TestLLMTranslatorEmptyCompletionFails(t *testing.T) {
	adapter := &sequenceAdapter{responses: []llm.Response{
		{Text: "not json"},
		{Text: "   "},
	}}
	tr := NewLLMTranslator(adapter, nil)

	if _, err := tr.Translate(context.Background(), "hello", "si"); err == nil {
		t.Fatalf("expected error on empty completion")
	}
}

func TestLLMTranslatorAdapterErrorSurfaces(t *testing.T) {
	adapter := &sequenceAdapter{err: errors.New("provider down")}
	tr := NewLLMTranslator(adapter, nil)

	if _, err := tr.Translate(context.Background(), "hello", "si"); err == nil {
		t.Fatalf("expected adapter error to surface")
	}
}

func TestTonePreservationChangesPrompts(t *testing.T) {
	adapter := &sequenceAdapter{responses: []llm.Response{
		{Text: `{"translated_text": "මම අහගෙන ඉන්නවා", "source_language": "en"}`},
	}}
	tr := NewLLMTranslator(adapter, nil).WithTonePreservation()

	if _, err := tr.Translate(context.Background(), "I hear you", "si"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(systemPrompt(adapter.contexts[0]), "Preserve the emotional tone") {
		t.Fatalf("tone instruction missing: %q", systemPrompt(adapter.contexts[0]))
	}
}
