package mock

import (
	"context"

	"github.com/serenehq/serene/pkg/llm"
)

type LLMConfig struct {
	ResponseText string
	Err          error
	Blocked      bool
}

// LLMAdapter returns canned completions. Used by tests and local runs
// without provider credentials.
type LLMAdapter struct {
	cfg   LLMConfig
	Calls int
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	if cfg.ResponseText == "" && cfg.Err == nil {
		cfg.ResponseText = "mock response"
	}
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	a.Calls++
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	return llm.Response{Text: a.cfg.ResponseText, Blocked: a.cfg.Blocked, FinishReason: "stop"}, nil
}

var _ llm.Adapter = (*LLMAdapter)(nil)
