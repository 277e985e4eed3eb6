package lang

import (
	"context"
	"errors"
	"testing"

	"github.com/serenehq/serene/pkg/translate"
)

type stubProvider struct {
	name   string
	result translate.Result
	err    error
	calls  int
	lastTo string
}

func (s *stubProvider) Translate(ctx context.Context, text, targetLang string) (translate.Result, error) {
	s.calls++
	s.lastTo = targetLang
	return s.result, s.err
}

func (s *stubProvider) Name() string { return s.name }

func TestIsRomanizedSinhala(t *testing.T) {
	if !IsRomanizedSinhala("mama ada godak duka hithenawa mata one yanna") {
		t.Fatalf("expected singlish detection")
	}
	if IsRomanizedSinhala("I had a really rough day at work today") {
		t.Fatalf("english misclassified as singlish")
	}
	if IsRomanizedSinhala("") {
		t.Fatalf("empty text cannot be singlish")
	}
	// Two marker hits are below the max(2, ...) floor.
	if IsRomanizedSinhala("mama feel very sad mata") {
		t.Fatalf("two markers must not exceed the floor")
	}
}

func TestNormalizePrimaryDetectsCanonical(t *testing.T) {
	primary := &stubProvider{name: "primary", result: translate.Result{Text: "ignored", SourceLang: "en"}}
	n := NewNormalizer(primary, nil, nil)
	got := n.Normalize(context.Background(), "I feel fine today")
	if got.WasTranslated {
		t.Fatalf("canonical input must not be marked translated")
	}
	if got.Text != "I feel fine today" {
		t.Fatalf("canonical input must keep original wording, got %q", got.Text)
	}
	if got.NeedsTranslation() {
		t.Fatalf("canonical input needs no back-translation")
	}
}

func TestNormalizePrimaryTranslates(t *testing.T) {
	primary := &stubProvider{name: "primary", result: translate.Result{Text: "I am sad", SourceLang: "si"}}
	n := NewNormalizer(primary, nil, nil)
	got := n.Normalize(context.Background(), "මම දුකයි")
	if !got.WasTranslated || got.LanguageTag != TagSinhala {
		t.Fatalf("expected translated sinhala, got %+v", got)
	}
	if !got.NeedsTranslation() {
		t.Fatalf("non-canonical source needs back-translation")
	}
}

func TestNormalizeFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	secondary := &stubProvider{name: "llm", result: translate.Result{Text: "hello", SourceLang: "es"}}
	n := NewNormalizer(primary, secondary, nil)
	got := n.Normalize(context.Background(), "hola")
	if !got.UsedFallback {
		t.Fatalf("expected fallback flag")
	}
	if got.Text != "hello" || got.LanguageTag != "es" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !got.NeedsTranslation() {
		t.Fatalf("expected needsTranslation true for es")
	}
}

func TestNormalizeTotalFailureDegrades(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	secondary := &stubProvider{name: "llm", err: errors.New("down too")}
	n := NewNormalizer(primary, secondary, nil)
	raw := "texto original"
	got := n.Normalize(context.Background(), raw)
	if !got.Failed {
		t.Fatalf("expected failed flag")
	}
	if got.Text != raw {
		t.Fatalf("degraded mode must pass the original through")
	}
	if got.NeedsTranslation() {
		t.Fatalf("degraded mode treats the original as canonical")
	}
}

func TestNormalizeSinglishRoutesToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", result: translate.Result{Text: "x", SourceLang: "en"}}
	secondary := &stubProvider{name: "llm", result: translate.Result{Text: "I feel very sad today", SourceLang: "si"}}
	n := NewNormalizer(primary, secondary, nil)
	got := n.Normalize(context.Background(), "mama ada godak duka hithenawa mata one yanna")
	if primary.calls != 0 {
		t.Fatalf("singlish must bypass the primary provider")
	}
	if secondary.calls != 1 {
		t.Fatalf("expected secondary call")
	}
	if got.LanguageTag != TagRomanizedSinhala || !got.WasTranslated {
		t.Fatalf("unexpected result: %+v", got)
	}
}
