package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/llm"
)

type countingAdapter struct {
	calls int
	resp  llm.Response
	err   error
}

func (a *countingAdapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	a.calls++
	return a.resp, a.err
}

func (a *countingAdapter) Name() string { return "counting" }

func newChain(adapters ...*countingAdapter) *llm.Chain {
	var attempts []llm.Attempt
	for i, a := range adapters {
		attempts = append(attempts, llm.Attempt{ID: "attempt-" + string(rune('a'+i)), Adapter: a})
	}
	return llm.NewChain(attempts, nil)
}

func TestScopeGuardBypassesGeneration(t *testing.T) {
	adapter := &countingAdapter{resp: llm.Response{Text: "generated"}}
	g := NewGenerator(nil, newChain(adapter), nil)
	got := g.Generate(context.Background(), PromptInput{
		Emotion:       emotion.Neutral,
		CanonicalText: "can you reset my password please",
	})
	if got.ProviderID != ProviderScopeGuard {
		t.Fatalf("expected scope guard outcome, got %s", got.ProviderID)
	}
	if got.IsFallback {
		t.Fatalf("scope guard is terminal, not a fallback")
	}
	if adapter.calls != 0 {
		t.Fatalf("generation chain must not be invoked")
	}
	if !strings.Contains(got.Text, "technical support") {
		t.Fatalf("boundary message must name the category, got %q", got.Text)
	}
}

func TestEmotionalVocabularyOverridesScope(t *testing.T) {
	adapter := &countingAdapter{resp: llm.Response{Text: "generated"}}
	g := NewGenerator(nil, newChain(adapter), nil)
	got := g.Generate(context.Background(), PromptInput{
		Emotion:       emotion.Sad,
		CanonicalText: "I feel so stressed about this billing mistake, nobody listens to me",
	})
	if got.ProviderID == ProviderScopeGuard {
		t.Fatalf("emotional turn must not be redirected")
	}
	if adapter.calls != 1 {
		t.Fatalf("expected generation, got %d calls", adapter.calls)
	}
}

func TestChainProducesReply(t *testing.T) {
	adapter := &countingAdapter{resp: llm.Response{Text: "I'm here for you."}}
	g := NewGenerator(nil, newChain(adapter), nil)
	got := g.Generate(context.Background(), PromptInput{
		Emotion:       emotion.Sad,
		CanonicalText: "I had a terrible day",
	})
	if got.IsFallback {
		t.Fatalf("did not expect fallback")
	}
	if got.Text != "I'm here for you." {
		t.Fatalf("unexpected reply %q", got.Text)
	}
}

func TestStaticFallbackWhenChainExhausted(t *testing.T) {
	bad1 := &countingAdapter{err: errors.New("down")}
	bad2 := &countingAdapter{err: errors.New("down too")}
	g := NewGenerator(nil, newChain(bad1, bad2), nil)
	got := g.Generate(context.Background(), PromptInput{
		Emotion:       emotion.Sad,
		CanonicalText: "I had a terrible day",
	})
	if !got.IsFallback {
		t.Fatalf("expected fallback reply")
	}
	if got.ProviderID != ProviderFallback {
		t.Fatalf("expected static fallback provider, got %s", got.ProviderID)
	}
	if strings.TrimSpace(got.Text) == "" {
		t.Fatalf("fallback reply must be non-empty")
	}
	if bad1.calls != 1 || bad2.calls != 1 {
		t.Fatalf("expected each attempt tried once")
	}
}

func TestFallbackWithoutChain(t *testing.T) {
	g := NewGenerator(nil, nil, nil)
	got := g.Generate(context.Background(), PromptInput{
		Emotion:       emotion.Happy,
		CanonicalText: "good news today",
	})
	if !got.IsFallback || strings.TrimSpace(got.Text) == "" {
		t.Fatalf("expected non-empty fallback, got %+v", got)
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	in := PromptInput{
		Emotion:       emotion.Sad,
		Confidence:    0.8,
		CanonicalText: "it happened again",
		Context: convo.Context{
			Topic: "family",
			Entries: []convo.Entry{
				{Role: convo.RoleUser, Content: "my mother shouted at me", Emotion: emotion.Sad, Timestamp: time.Now()},
				{Role: convo.RoleAssistant, Content: "that sounds painful", Timestamp: time.Now()},
			},
		},
	}
	prompt := BuildPrompt(in)
	if len(prompt.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(prompt.Messages))
	}
	system := prompt.Messages[0].Content
	for _, want := range []string{"family", "sad", "my mother shouted at me", "that sounds painful"} {
		if !strings.Contains(system, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if prompt.Messages[1].Content != "it happened again" {
		t.Fatalf("user message must be the current utterance")
	}
}

func TestScopeGuardLooksBackOverRecentTurns(t *testing.T) {
	guard := NewScopeGuard(nil, 3)
	_, fired := guard.Check("and what about the second one", []string{
		"hello",
		"write a function that sorts a list",
	})
	if !fired {
		t.Fatalf("expected guard to fire from a recent turn")
	}
}
