package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Context struct {
	Messages []Message
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
	// Blocked marks completions suppressed by the provider's safety
	// layer; the chain treats them as failures.
	Blocked bool
}

type Adapter interface {
	Generate(ctx context.Context, input Context) (Response, error)
	Name() string
}

// System prepends a system message to a context.
func System(content string) Context {
	return Context{Messages: []Message{{Role: "system", Content: content}}}
}

// User appends a user message and returns the context.
func (c Context) User(content string) Context {
	c.Messages = append(c.Messages, Message{Role: "user", Content: content})
	return c
}
