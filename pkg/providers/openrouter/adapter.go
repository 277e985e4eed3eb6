package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/resilience"
)

type Adapter struct {
	APIKey  string
	Model   string
	BaseURL string
	// Referer and Title populate OpenRouter's attribution headers.
	Referer string
	Title   string
	Client  *http.Client

	MaxTokens   int
	Temperature float64
}

func NewAdapter(apiKey, model string) *Adapter {
	return &Adapter{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     "https://openrouter.ai/api/v1",
		Client:      &http.Client{Timeout: 60 * time.Second},
		MaxTokens:   512,
		Temperature: 0.7,
	}
}

func (a *Adapter) Name() string { return "openrouter" }

func (a *Adapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	body, err := a.buildRequest(input)
	if err != nil {
		return llm.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", body)
	if err != nil {
		return llm.Response{}, err
	}
	a.applyHeaders(req)

	resp, err := a.client().Do(req)
	if err != nil {
		return llm.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return llm.Response{}, resilience.RateLimitError{Provider: a.Name(), Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return llm.Response{}, errors.New(string(raw))
	}

	var payload completionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return llm.Response{}, err
	}
	return fromPayload(payload)
}

type completionPayload struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func fromPayload(payload completionPayload) (llm.Response, error) {
	if len(payload.Choices) == 0 {
		return llm.Response{}, errors.New("openrouter: no choices in response")
	}
	choice := payload.Choices[0]
	out := llm.Response{
		Text:         strings.TrimSpace(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage: llm.Usage{
			PromptTokens:     payload.Usage.PromptTokens,
			CompletionTokens: payload.Usage.CompletionTokens,
			TotalTokens:      payload.Usage.TotalTokens,
		},
	}
	if choice.FinishReason == "content_filter" {
		out.Blocked = true
	}
	return out, nil
}

func (a *Adapter) buildRequest(input llm.Context) (*bytes.Buffer, error) {
	req := map[string]any{
		"model":       a.Model,
		"messages":    toWireMessages(input.Messages),
		"max_tokens":  a.MaxTokens,
		"temperature": a.Temperature,
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(b), nil
}

func toWireMessages(msgs []llm.Message) []map[string]string {
	out := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]string{"role": m.Role, "content": m.Content})
	}
	return out
}

func (a *Adapter) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if a.Referer != "" {
		req.Header.Set("HTTP-Referer", a.Referer)
	}
	if a.Title != "" {
		req.Header.Set("X-Title", a.Title)
	}
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

var _ llm.Adapter = (*Adapter)(nil)
