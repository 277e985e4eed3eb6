package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/resilience"
)

type scriptedAdapter struct {
	name string
	resp Response
	err  error
}

func (a scriptedAdapter) Generate(ctx context.Context, input Context) (Response, error) {
	return a.resp, a.err
}

func (a scriptedAdapter) Name() string { return a.name }

func TestChainFirstSuccessWins(t *testing.T) {
	chain := NewChain([]Attempt{
		{ID: "a", Adapter: scriptedAdapter{name: "a", resp: Response{Text: "hello"}}},
		{ID: "b", Adapter: scriptedAdapter{name: "b", resp: Response{Text: "unused"}}},
	}, nil)
	resp, id, err := chain.Run(context.Background(), System("s").User("u"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "a" || resp.Text != "hello" {
		t.Fatalf("expected first attempt to win, got %s %q", id, resp.Text)
	}
}

func TestChainSkipsFailuresAndBlocked(t *testing.T) {
	chain := NewChain([]Attempt{
		{ID: "err", Adapter: scriptedAdapter{err: errors.New("down")}},
		{ID: "blocked", Adapter: scriptedAdapter{resp: Response{Text: "x", Blocked: true}}},
		{ID: "empty", Adapter: scriptedAdapter{resp: Response{Text: "   "}}},
		{ID: "ok", Adapter: scriptedAdapter{resp: Response{Text: "fine"}}},
	}, nil)
	resp, id, err := chain.Run(context.Background(), Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "ok" || resp.Text != "fine" {
		t.Fatalf("expected chain to reach ok attempt, got %s", id)
	}
}

func TestChainExhausted(t *testing.T) {
	chain := NewChain([]Attempt{
		{ID: "a", Adapter: scriptedAdapter{err: errors.New("down")}},
		{ID: "b", Adapter: scriptedAdapter{err: errors.New("down too")}},
	}, nil)
	_, _, err := chain.Run(context.Background(), Context{})
	if err == nil {
		t.Fatalf("expected error when all attempts fail")
	}
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(nil, nil)
	_, _, err := chain.Run(context.Background(), Context{})
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("expected ErrChainExhausted, got %v", err)
	}
}

type flakyAdapter struct {
	name     string
	failures int
	err      error
	calls    *int
}

func (a flakyAdapter) Generate(ctx context.Context, input Context) (Response, error) {
	*a.calls++
	if *a.calls <= a.failures {
		return Response{}, a.err
	}
	return Response{Text: "recovered"}, nil
}

func (a flakyAdapter) Name() string { return a.name }

func TestChainRetriesRateLimitedAttempt(t *testing.T) {
	calls := 0
	chain := NewChain([]Attempt{
		{ID: "rl", Adapter: flakyAdapter{
			name:     "rl",
			failures: 2,
			err:      resilience.RateLimitError{Provider: "rl"},
			calls:    &calls,
		}},
	}, nil)
	chain.SetRetryConfig(RetryConfig{MaxAttempts: 3, Sleep: func(time.Duration) {}})

	resp, id, err := chain.Run(context.Background(), Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rl" || resp.Text != "recovered" {
		t.Fatalf("expected attempt to recover after retries, got %s %q", id, resp.Text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestChainDoesNotRetryHardFailures(t *testing.T) {
	calls := 0
	chain := NewChain([]Attempt{
		{ID: "down", Adapter: flakyAdapter{name: "down", failures: 10, err: errors.New("boom"), calls: &calls}},
		{ID: "ok", Adapter: scriptedAdapter{name: "ok", resp: Response{Text: "fine"}}},
	}, nil)
	chain.SetRetryConfig(RetryConfig{MaxAttempts: 3, Sleep: func(time.Duration) {}})

	_, id, err := chain.Run(context.Background(), Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "ok" {
		t.Fatalf("expected chain to move on, winner %s", id)
	}
	if calls != 1 {
		t.Fatalf("hard failure should not be retried, got %d calls", calls)
	}
}

func TestChainBreakerSuspendsRateLimitedAttempt(t *testing.T) {
	calls := 0
	chain := NewChain([]Attempt{
		{ID: "rl", Adapter: flakyAdapter{
			name:     "rl",
			failures: 10,
			err:      resilience.RateLimitError{Provider: "rl"},
			calls:    &calls,
		}},
		{ID: "ok", Adapter: scriptedAdapter{name: "ok", resp: Response{Text: "fine"}}},
	}, nil)
	chain.SetRetryConfig(RetryConfig{MaxAttempts: 1, Sleep: func(time.Duration) {}})
	chain.SetBreaker(1, time.Hour)
	obs := metrics.NewMemoryObserver()
	chain.SetObserver(obs)

	if _, id, err := chain.Run(context.Background(), Context{}); err != nil || id != "ok" {
		t.Fatalf("first run: winner %s err %v", id, err)
	}
	if len(obs.Named(metrics.EventBreakerTripped)) != 1 {
		t.Fatalf("expected breaker to trip on first run")
	}
	callsAfterFirst := calls

	if _, id, err := chain.Run(context.Background(), Context{}); err != nil || id != "ok" {
		t.Fatalf("second run: winner %s err %v", id, err)
	}
	if calls != callsAfterFirst {
		t.Fatalf("suspended attempt was still called, %d -> %d", callsAfterFirst, calls)
	}
	if len(obs.Named(metrics.EventBreakerDenied)) != 1 {
		t.Fatalf("expected a breaker denial on second run")
	}
}
