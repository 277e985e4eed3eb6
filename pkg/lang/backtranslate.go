package lang

import (
	"context"
	"log/slog"

	"github.com/serenehq/serene/pkg/redact"
	"github.com/serenehq/serene/pkg/translate"
)

// BackTranslated is a reply rendered into the user's language.
type BackTranslated struct {
	Text              string
	TranslationFailed bool
	Method            string
}

// BackTranslator mirrors the normalizer in reverse: canonical replies are
// rendered into the session's resolved language, degrading to the
// canonical text when both providers fail.
type BackTranslator struct {
	primary   translate.Provider
	secondary translate.Provider
	log       *slog.Logger
}

func NewBackTranslator(primary, secondary translate.Provider, log *slog.Logger) *BackTranslator {
	if log == nil {
		log = slog.Default()
	}
	return &BackTranslator{primary: primary, secondary: secondary, log: log}
}

func (b *BackTranslator) Render(ctx context.Context, canonicalReply, languageTag string) BackTranslated {
	if languageTag == Canonical || languageTag == "" {
		return BackTranslated{Text: canonicalReply, Method: "none"}
	}

	// Romanized Sinhala always goes through the model translator; the
	// primary provider has no target for it.
	if languageTag == TagRomanizedSinhala {
		if out, ok := b.trySecondary(ctx, canonicalReply, languageTag); ok {
			return out
		}
		return BackTranslated{Text: canonicalReply, TranslationFailed: true, Method: "passthrough"}
	}

	if b.primary != nil {
		res, err := b.primary.Translate(ctx, canonicalReply, languageTag)
		if err == nil {
			return BackTranslated{Text: res.Text, Method: "primary"}
		}
		b.log.Warn("primary_backtranslation_failed",
			"provider", b.primary.Name(),
			"target", languageTag,
			"error", redact.Text(err.Error()),
		)
	}

	if out, ok := b.trySecondary(ctx, canonicalReply, languageTag); ok {
		return out
	}
	return BackTranslated{Text: canonicalReply, TranslationFailed: true, Method: "passthrough"}
}

func (b *BackTranslator) trySecondary(ctx context.Context, reply, languageTag string) (BackTranslated, bool) {
	if b.secondary == nil {
		return BackTranslated{}, false
	}
	res, err := b.secondary.Translate(ctx, reply, targetFor(languageTag))
	if err != nil {
		b.log.Warn("fallback_backtranslation_failed",
			"provider", b.secondary.Name(),
			"target", languageTag,
			"error", redact.Text(err.Error()),
		)
		return BackTranslated{}, false
	}
	return BackTranslated{Text: res.Text, Method: b.secondary.Name()}, true
}

// targetFor maps internal tags onto what translators understand.
func targetFor(languageTag string) string {
	if languageTag == TagRomanizedSinhala {
		return "romanized Sinhala (Sinhala written in English letters)"
	}
	return languageTag
}
