package lang

import (
	"context"
	"log/slog"
	"strings"

	"github.com/serenehq/serene/pkg/errorsx"
	"github.com/serenehq/serene/pkg/redact"
	"github.com/serenehq/serene/pkg/translate"
)

// Normalized carries the canonical-language rendering of an utterance and
// how it was obtained.
type Normalized struct {
	Text          string
	LanguageTag   string
	WasTranslated bool
	Method        string
	UsedFallback  bool
	Failed        bool
}

// NeedsTranslation reports whether replies must be rendered back into the
// user's language.
func (n Normalized) NeedsTranslation() bool {
	return n.LanguageTag != Canonical
}

// Normalizer renders utterances into the canonical language. The primary
// provider leads; the model-based translator covers primary failure and
// the romanized-Sinhala variant; total failure degrades to pass-through.
type Normalizer struct {
	primary   translate.Provider
	secondary translate.Provider
	log       *slog.Logger
}

func NewNormalizer(primary, secondary translate.Provider, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{primary: primary, secondary: secondary, log: log}
}

func (n *Normalizer) Normalize(ctx context.Context, rawText string) Normalized {
	if IsRomanizedSinhala(rawText) {
		return n.normalizeSinglish(ctx, rawText)
	}

	if n.primary != nil {
		res, err := n.primary.Translate(ctx, rawText, Canonical)
		if err == nil {
			return fromPrimary(rawText, res)
		}
		n.log.Warn("primary_translation_failed",
			"provider", n.primary.Name(),
			"reason", string(errorsx.Reason(errorsx.Wrap(err, errorsx.ReasonTranslatePrimary))),
			"error", redact.Text(err.Error()),
		)
	}

	if n.secondary != nil {
		res, err := n.secondary.Translate(ctx, rawText, Canonical)
		if err == nil {
			tag := normalizeTag(res.SourceLang)
			return Normalized{
				Text:          res.Text,
				LanguageTag:   tag,
				WasTranslated: tag != Canonical,
				Method:        n.secondary.Name(),
				UsedFallback:  true,
			}
		}
		n.log.Warn("fallback_translation_failed",
			"provider", n.secondary.Name(),
			"error", redact.Text(err.Error()),
		)
	}

	// Degraded mode: the original text stands in as canonical.
	return Normalized{
		Text:        rawText,
		LanguageTag: Canonical,
		Method:      "passthrough",
		Failed:      true,
	}
}

// normalizeSinglish routes romanized Sinhala straight to the model
// translator; the primary provider cannot detect it.
func (n *Normalizer) normalizeSinglish(ctx context.Context, rawText string) Normalized {
	if n.secondary != nil {
		res, err := n.secondary.Translate(ctx, rawText, Canonical)
		if err == nil {
			return Normalized{
				Text:          res.Text,
				LanguageTag:   TagRomanizedSinhala,
				WasTranslated: true,
				Method:        n.secondary.Name(),
			}
		}
		n.log.Warn("singlish_translation_failed",
			"provider", n.secondary.Name(),
			"error", redact.Text(err.Error()),
		)
	}
	return Normalized{
		Text:        rawText,
		LanguageTag: Canonical,
		Method:      "passthrough",
		Failed:      true,
	}
}

func fromPrimary(rawText string, res translate.Result) Normalized {
	tag := normalizeTag(res.SourceLang)
	if tag == Canonical {
		// Detected canonical already; keep the original wording.
		return Normalized{
			Text:        rawText,
			LanguageTag: Canonical,
			Method:      "primary",
		}
	}
	return Normalized{
		Text:          res.Text,
		LanguageTag:   tag,
		WasTranslated: true,
		Method:        "primary",
	}
}

func normalizeTag(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "", translate.AutoDetect, TagUnknown:
		return Canonical
	}
	if idx := strings.Index(code, "-"); idx > 0 && code != TagRomanizedSinhala {
		code = code[:idx]
	}
	return code
}
