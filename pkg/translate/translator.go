package translate

import "context"

// Result is a completed translation with the provider's source-language
// guess. The primary provider's guess is authoritative for detection.
type Result struct {
	Text       string
	SourceLang string
}

// Provider is the translation collaborator contract. Implementations are
// fallible; callers own the fallback policy.
type Provider interface {
	Translate(ctx context.Context, text, targetLang string) (Result, error)
	Name() string
}

// AutoDetect requests source-language detection from providers that
// support it.
const AutoDetect = "auto"
