package mock

import (
	"context"

	"github.com/serenehq/serene/pkg/translate"
)

type TranslatorConfig struct {
	Text       string
	SourceLang string
	Err        error
	// Echo returns the input text unchanged instead of canned text.
	Echo bool
}

// Translator returns canned translations.
type Translator struct {
	cfg   TranslatorConfig
	Calls int
}

func NewTranslator(cfg TranslatorConfig) *Translator {
	if cfg.SourceLang == "" {
		cfg.SourceLang = "en"
	}
	return &Translator{cfg: cfg}
}

func (t *Translator) Name() string { return "mock_translator" }

func (t *Translator) Translate(ctx context.Context, text, targetLang string) (translate.Result, error) {
	t.Calls++
	if t.cfg.Err != nil {
		return translate.Result{}, t.cfg.Err
	}
	out := t.cfg.Text
	if t.cfg.Echo || out == "" {
		out = text
	}
	return translate.Result{Text: out, SourceLang: t.cfg.SourceLang}, nil
}

var _ translate.Provider = (*Translator)(nil)
