package generate

import (
	"context"
	"log/slog"
	"time"

	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/metrics"
)

// ProviderScopeGuard identifies the terminal scope-guard outcome.
const ProviderScopeGuard = "scope_guard"

// ProviderFallback identifies the terminal static template.
const ProviderFallback = "static_fallback"

// Reply is the single generation outcome of a request.
type Reply struct {
	Text       string
	ProviderID string
	IsFallback bool
}

// Generator produces exactly one reply per request: scope guard first,
// then the provider chain, then the static emotion-keyed fallback.
type Generator struct {
	guard *ScopeGuard
	chain *llm.Chain
	obs   metrics.Observer
	log   *slog.Logger
}

func NewGenerator(guard *ScopeGuard, chain *llm.Chain, log *slog.Logger) *Generator {
	if guard == nil {
		guard = NewScopeGuard(nil, 0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{guard: guard, chain: chain, obs: metrics.NoopObserver{}, log: log}
}

func (g *Generator) SetObserver(obs metrics.Observer) {
	if obs != nil {
		g.obs = obs
		if g.chain != nil {
			g.chain.SetObserver(obs)
		}
	}
}

// Generate never fails: one of the three outcomes always produces text.
func (g *Generator) Generate(ctx context.Context, in PromptInput) Reply {
	if category, fired := g.guard.Check(in.CanonicalText, in.Context.UserTurns()); fired {
		g.log.Info("scope_guard_fired", "category", category)
		return Reply{
			Text:       BoundaryMessage(category),
			ProviderID: ProviderScopeGuard,
		}
	}

	if g.chain != nil && g.chain.Len() > 0 {
		resp, attemptID, err := g.chain.Run(ctx, BuildPrompt(in))
		if err == nil {
			return Reply{Text: resp.Text, ProviderID: attemptID}
		}
		g.log.Warn("generation_chain_exhausted", "error", err.Error())
	}

	g.obs.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventFallbackFired,
		Time: time.Now(),
		Tags: map[string]string{"stage": "generate", "provider": ProviderFallback},
	})
	return Reply{
		Text:       FallbackReply(in.Emotion),
		ProviderID: ProviderFallback,
		IsFallback: true,
	}
}
