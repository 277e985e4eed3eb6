package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/serenehq/serene/pkg/errorsx"
	"github.com/serenehq/serene/pkg/llm"
)

// LLMTranslator is the secondary, model-based translation path. It asks
// for a structured JSON reply; if parsing fails it retries with a plain
// instruction and accepts the raw completion as the translation.
type LLMTranslator struct {
	adapter      llm.Adapter
	preserveTone bool
	log          *slog.Logger
}

func NewLLMTranslator(adapter llm.Adapter, log *slog.Logger) *LLMTranslator {
	if log == nil {
		log = slog.Default()
	}
	return &LLMTranslator{adapter: adapter, log: log}
}

// WithTonePreservation returns a copy that instructs the model to keep
// the emotional tone intact. Used by back-translation.
func (t *LLMTranslator) WithTonePreservation() *LLMTranslator {
	return &LLMTranslator{adapter: t.adapter, preserveTone: true, log: t.log}
}

func (t *LLMTranslator) Name() string { return "llm_translator" }

type structuredTranslation struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
}

func (t *LLMTranslator) Translate(ctx context.Context, text, targetLang string) (Result, error) {
	resp, err := t.adapter.Generate(ctx, t.structuredPrompt(text, targetLang))
	if err != nil {
		return Result{}, errorsx.Wrap(err, errorsx.ReasonTranslateFallback)
	}
	if parsed, ok := parseStructured(resp.Text); ok {
		return Result{Text: parsed.TranslatedText, SourceLang: parsed.SourceLanguage}, nil
	}

	t.log.Warn("structured_translation_parse_failed", "provider", t.adapter.Name())
	resp, err = t.adapter.Generate(ctx, t.plainPrompt(text, targetLang))
	if err != nil {
		return Result{}, errorsx.Wrap(err, errorsx.ReasonTranslateFallback)
	}
	out := strings.TrimSpace(resp.Text)
	if out == "" {
		return Result{}, errorsx.Wrap(fmt.Errorf("empty translation from %s", t.adapter.Name()), errorsx.ReasonTranslateFallback)
	}
	return Result{Text: out, SourceLang: ""}, nil
}

func (t *LLMTranslator) structuredPrompt(text, targetLang string) llm.Context {
	tone := ""
	if t.preserveTone {
		tone = " Preserve the emotional tone and warmth of the original."
	}
	system := fmt.Sprintf(`You are a translation engine. Translate the user's message to %s.%s
Reply with ONLY a JSON object, no extra text:
{"translated_text": "...", "source_language": "two-letter code of the original"}`, langName(targetLang), tone)
	return llm.System(system).User(text)
}

func (t *LLMTranslator) plainPrompt(text, targetLang string) llm.Context {
	tone := ""
	if t.preserveTone {
		tone = " Keep the emotional tone intact."
	}
	system := fmt.Sprintf("Translate the following message to %s.%s Reply with the translation only.", langName(targetLang), tone)
	return llm.System(system).User(text)
}

func parseStructured(raw string) (structuredTranslation, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return structuredTranslation{}, false
	}
	var out structuredTranslation
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err != nil {
		return structuredTranslation{}, false
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return structuredTranslation{}, false
	}
	return out, true
}

func langName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	case "si":
		return "Sinhala"
	case "ta":
		return "Tamil"
	case AutoDetect, "":
		return "English"
	default:
		return code
	}
}
