package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/serenehq/serene/pkg/errorsx"
	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/redact"
	"github.com/serenehq/serene/pkg/resilience"
)

// Attempt is one entry in an ordered generation chain: a provider adapter
// under a specific model/credential variant. Adding or removing providers
// is data, not control flow.
type Attempt struct {
	ID      string
	Adapter Adapter
	Timeout time.Duration
}

// ErrChainExhausted is returned when every attempt failed or produced an
// unusable completion.
var ErrChainExhausted = errors.New("generation chain exhausted")

const (
	breakerThreshold = 3
	breakerCooldown  = 30 * time.Second
)

// Chain runs attempts in order until one returns a usable completion.
// Rate-limited attempts are retried with backoff and suspended by a
// per-attempt circuit breaker after repeated limits.
type Chain struct {
	attempts []Attempt
	breakers map[string]*resilience.CircuitBreaker
	retry    RetryConfig
	obs      metrics.Observer
	log      *slog.Logger
}

func NewChain(attempts []Attempt, log *slog.Logger) *Chain {
	if log == nil {
		log = slog.Default()
	}
	breakers := make(map[string]*resilience.CircuitBreaker, len(attempts))
	for _, a := range attempts {
		breakers[a.ID] = resilience.NewCircuitBreaker(breakerThreshold, breakerCooldown)
	}
	return &Chain{
		attempts: attempts,
		breakers: breakers,
		retry:    RetryConfig{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: 0.2},
		obs:      metrics.NoopObserver{},
		log:      log,
	}
}

func (c *Chain) SetObserver(obs metrics.Observer) {
	if obs != nil {
		c.obs = obs
	}
}

// SetRetryConfig overrides the per-attempt retry behavior.
func (c *Chain) SetRetryConfig(cfg RetryConfig) {
	c.retry = cfg
}

// SetBreaker rebuilds the per-attempt circuit breakers.
func (c *Chain) SetBreaker(threshold int, cooldown time.Duration) {
	for _, a := range c.attempts {
		c.breakers[a.ID] = resilience.NewCircuitBreaker(threshold, cooldown)
	}
}

func (c *Chain) Len() int { return len(c.attempts) }

// Run tries each attempt in order. Blocked or empty completions count as
// failures and the chain moves on. The id of the winning attempt is
// returned alongside the response.
func (c *Chain) Run(ctx context.Context, input Context) (Response, string, error) {
	if len(c.attempts) == 0 {
		return Response{}, "", ErrChainExhausted
	}
	var lastErr error = ErrChainExhausted
	for _, attempt := range c.attempts {
		if ctx.Err() != nil {
			return Response{}, "", ctx.Err()
		}
		resp, err := c.runOne(ctx, attempt, input)
		if err == nil {
			return resp, attempt.ID, nil
		}
		lastErr = err
		c.obs.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventProviderError,
			Time:  time.Now(),
			Tags:  map[string]string{"attempt": attempt.ID, "stage": "generate"},
			Fields: map[string]any{
				"reason": string(errorsx.Reason(err)),
			},
		})
		c.log.Warn("generation_attempt_failed",
			"attempt", attempt.ID,
			"error", redact.Text(err.Error()),
		)
	}
	return Response{}, "", errorsx.Wrap(lastErr, errorsx.ReasonLLMGenerate)
}

func (c *Chain) runOne(ctx context.Context, attempt Attempt, input Context) (Response, error) {
	br := c.breakers[attempt.ID]
	if br != nil && !br.Allow() {
		c.obs.RecordEvent(metrics.MetricsEvent{
			Name: metrics.EventBreakerDenied,
			Time: time.Now(),
			Tags: map[string]string{"attempt": attempt.ID, "stage": "generate"},
		})
		return Response{}, errorsx.Wrap(errors.New("attempt suspended after repeated rate limits"), errorsx.ReasonLLMRateLimit)
	}

	timeout := attempt.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := Retry(callCtx, c.retry, func(ctx context.Context) (Response, error) {
		return attempt.Adapter.Generate(ctx, input)
	})
	if err != nil {
		if br != nil && br.OnError(err) {
			c.obs.RecordEvent(metrics.MetricsEvent{
				Name: metrics.EventBreakerTripped,
				Time: time.Now(),
				Tags: map[string]string{"attempt": attempt.ID, "stage": "generate"},
			})
			c.log.Warn("generation_attempt_suspended", "attempt", attempt.ID)
		}
		return Response{}, err
	}
	if br != nil {
		br.OnSuccess()
	}
	if resp.Blocked {
		return Response{}, errorsx.Wrap(errors.New("completion blocked by provider safety layer"), errorsx.ReasonLLMBlocked)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Response{}, errorsx.Wrap(errors.New("empty completion"), errorsx.ReasonLLMGenerate)
	}
	return resp, nil
}
