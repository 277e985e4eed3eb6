package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/serenehq/serene/pkg/classify"
	"github.com/serenehq/serene/pkg/configutil"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/notify"
	"github.com/serenehq/serene/pkg/providers/deepgram"
	"github.com/serenehq/serene/pkg/providers/elevenlabs"
	"github.com/serenehq/serene/pkg/providers/mock"
	"github.com/serenehq/serene/pkg/providers/openai"
	"github.com/serenehq/serene/pkg/providers/openrouter"
	"github.com/serenehq/serene/pkg/speech"
	"github.com/serenehq/serene/pkg/translate"
)

type (
	LLMFactory             func(reg *ProviderRegistry, settings map[string]any) (llm.Adapter, error)
	TranslatorFactory      func(reg *ProviderRegistry, settings map[string]any) (translate.Provider, error)
	TextClassifierFactory  func(reg *ProviderRegistry, settings map[string]any) (classify.TextClassifier, error)
	VoiceClassifierFactory func(reg *ProviderRegistry, settings map[string]any) (classify.VoiceClassifier, error)
	TranscriberFactory     func(reg *ProviderRegistry, settings map[string]any) (speech.Transcriber, error)
	SynthesizerFactory     func(reg *ProviderRegistry, settings map[string]any) (speech.Synthesizer, error)
	SenderFactory          func(reg *ProviderRegistry, settings map[string]any) (notify.Sender, error)
)

// ProviderRegistry maps provider names from config to constructors.
// Adding a vendor is a registration, not an engine change.
type ProviderRegistry struct {
	llms             map[string]LLMFactory
	translators      map[string]TranslatorFactory
	textClassifiers  map[string]TextClassifierFactory
	voiceClassifiers map[string]VoiceClassifierFactory
	transcribers     map[string]TranscriberFactory
	synthesizers     map[string]SynthesizerFactory
	senders          map[string]SenderFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		llms:             make(map[string]LLMFactory),
		translators:      make(map[string]TranslatorFactory),
		textClassifiers:  make(map[string]TextClassifierFactory),
		voiceClassifiers: make(map[string]VoiceClassifierFactory),
		transcribers:     make(map[string]TranscriberFactory),
		synthesizers:     make(map[string]SynthesizerFactory),
		senders:          make(map[string]SenderFactory),
	}
}

func (r *ProviderRegistry) RegisterLLM(name string, f LLMFactory) {
	r.llms[key(name)] = f
}

func (r *ProviderRegistry) RegisterTranslator(name string, f TranslatorFactory) {
	r.translators[key(name)] = f
}

func (r *ProviderRegistry) RegisterTextClassifier(name string, f TextClassifierFactory) {
	r.textClassifiers[key(name)] = f
}

func (r *ProviderRegistry) RegisterVoiceClassifier(name string, f VoiceClassifierFactory) {
	r.voiceClassifiers[key(name)] = f
}

func (r *ProviderRegistry) RegisterTranscriber(name string, f TranscriberFactory) {
	r.transcribers[key(name)] = f
}

func (r *ProviderRegistry) RegisterSynthesizer(name string, f SynthesizerFactory) {
	r.synthesizers[key(name)] = f
}

func (r *ProviderRegistry) RegisterSender(name string, f SenderFactory) {
	r.senders[key(name)] = f
}

func (r *ProviderRegistry) BuildLLM(provider string, settings map[string]any) (llm.Adapter, error) {
	f := r.llms[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildTranslator(provider string, settings map[string]any) (translate.Provider, error) {
	f := r.translators[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("translator not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildTextClassifier(provider string, settings map[string]any) (classify.TextClassifier, error) {
	f := r.textClassifiers[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("text classifier not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildVoiceClassifier(provider string, settings map[string]any) (classify.VoiceClassifier, error) {
	f := r.voiceClassifiers[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("voice classifier not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildTranscriber(provider string, settings map[string]any) (speech.Transcriber, error) {
	f := r.transcribers[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("transcriber not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildSynthesizer(provider string, settings map[string]any) (speech.Synthesizer, error) {
	f := r.synthesizers[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("synthesizer not registered: %s", provider)
	}
	return f(r, settings)
}

func (r *ProviderRegistry) BuildSender(provider string, settings map[string]any) (notify.Sender, error) {
	f := r.senders[key(provider)]
	if f == nil {
		return nil, fmt.Errorf("sender not registered: %s", provider)
	}
	return f(r, settings)
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultRegistry registers every built-in provider.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterLLM("openai", func(_ *ProviderRegistry, settings map[string]any) (llm.Adapter, error) {
		var s struct {
			APIKey      string  `mapstructure:"api_key"`
			Model       string  `mapstructure:"model"`
			BaseURL     string  `mapstructure:"base_url"`
			MaxTokens   int     `mapstructure:"max_tokens"`
			Temperature float64 `mapstructure:"temperature"`
			TimeoutMS   int     `mapstructure:"timeout_ms"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "openai.api_key"); err != nil {
			return nil, err
		}
		return openai.NewAdapter(openai.Config{
			APIKey:      s.APIKey,
			Model:       s.Model,
			BaseURL:     s.BaseURL,
			MaxTokens:   s.MaxTokens,
			Temperature: s.Temperature,
			Timeout:     time.Duration(s.TimeoutMS) * time.Millisecond,
		})
	})

	r.RegisterLLM("openrouter", func(_ *ProviderRegistry, settings map[string]any) (llm.Adapter, error) {
		var s struct {
			APIKey      string  `mapstructure:"api_key"`
			Model       string  `mapstructure:"model"`
			BaseURL     string  `mapstructure:"base_url"`
			Referer     string  `mapstructure:"referer"`
			Title       string  `mapstructure:"title"`
			MaxTokens   int     `mapstructure:"max_tokens"`
			Temperature float64 `mapstructure:"temperature"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "openrouter.api_key"); err != nil {
			return nil, err
		}
		adapter := openrouter.NewAdapter(s.APIKey, s.Model)
		if s.BaseURL != "" {
			adapter.BaseURL = s.BaseURL
		}
		adapter.Referer = s.Referer
		adapter.Title = s.Title
		if s.MaxTokens > 0 {
			adapter.MaxTokens = s.MaxTokens
		}
		if s.Temperature > 0 {
			adapter.Temperature = s.Temperature
		}
		return adapter, nil
	})

	r.RegisterLLM("mock", func(_ *ProviderRegistry, settings map[string]any) (llm.Adapter, error) {
		var s struct {
			ResponseText string `mapstructure:"response_text"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return mock.NewLLMAdapter(mock.LLMConfig{ResponseText: s.ResponseText}), nil
	})

	r.RegisterTranslator("libretranslate", func(_ *ProviderRegistry, settings map[string]any) (translate.Provider, error) {
		var s struct {
			BaseURL string `mapstructure:"base_url"`
			APIKey  string `mapstructure:"api_key"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.BaseURL, "translation.base_url"); err != nil {
			return nil, err
		}
		return translate.NewHTTPProvider(s.BaseURL, s.APIKey), nil
	})

	// The model-based translator rides a generation adapter; its settings
	// nest the adapter's provider and settings.
	r.RegisterTranslator("llm", func(reg *ProviderRegistry, settings map[string]any) (translate.Provider, error) {
		var s struct {
			Provider string         `mapstructure:"provider"`
			Settings map[string]any `mapstructure:"settings"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if s.Provider == "" {
			s.Provider = "openai"
		}
		adapter, err := reg.BuildLLM(s.Provider, s.Settings)
		if err != nil {
			return nil, err
		}
		return translate.NewLLMTranslator(adapter, nil), nil
	})

	r.RegisterTranslator("mock", func(_ *ProviderRegistry, settings map[string]any) (translate.Provider, error) {
		return mock.NewTranslator(mock.TranslatorConfig{Echo: true}), nil
	})

	r.RegisterTextClassifier("emotion_service", func(_ *ProviderRegistry, settings map[string]any) (classify.TextClassifier, error) {
		baseURL, err := classifierBaseURL(settings)
		if err != nil {
			return nil, err
		}
		return classify.NewHTTPClassifier(baseURL), nil
	})

	r.RegisterVoiceClassifier("emotion_service", func(_ *ProviderRegistry, settings map[string]any) (classify.VoiceClassifier, error) {
		baseURL, err := classifierBaseURL(settings)
		if err != nil {
			return nil, err
		}
		return classify.NewHTTPClassifier(baseURL), nil
	})

	r.RegisterTextClassifier("mock", func(_ *ProviderRegistry, settings map[string]any) (classify.TextClassifier, error) {
		return mock.NewTextClassifier(mock.ClassifierConfig{Signal: emotion.NeutralSignal(emotion.SourceText)}), nil
	})

	r.RegisterVoiceClassifier("mock", func(_ *ProviderRegistry, settings map[string]any) (classify.VoiceClassifier, error) {
		return mock.NewVoiceClassifier(mock.ClassifierConfig{Signal: emotion.NeutralSignal(emotion.SourceVoice)}), nil
	})

	r.RegisterTranscriber("deepgram", func(_ *ProviderRegistry, settings map[string]any) (speech.Transcriber, error) {
		var s struct {
			APIKey     string `mapstructure:"api_key"`
			Model      string `mapstructure:"model"`
			Language   string `mapstructure:"language"`
			SampleRate int    `mapstructure:"sample_rate"`
			Encoding   string `mapstructure:"encoding"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "speech.stt.api_key"); err != nil {
			return nil, err
		}
		return deepgram.NewTranscriber(deepgram.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			Language:   s.Language,
			SampleRate: s.SampleRate,
			Encoding:   s.Encoding,
		})
	})

	r.RegisterSynthesizer("elevenlabs", func(_ *ProviderRegistry, settings map[string]any) (speech.Synthesizer, error) {
		if err := configutil.ValidateSettings(settings, configutil.Schema{
			Required:     []string{"api_key", "voice_id"},
			AllowUnknown: true,
		}); err != nil {
			return nil, fmt.Errorf("speech.tts: %w", err)
		}
		var s struct {
			APIKey       string `mapstructure:"api_key"`
			VoiceID      string `mapstructure:"voice_id"`
			ModelID      string `mapstructure:"model_id"`
			OutputFormat string `mapstructure:"output_format"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return elevenlabs.NewSynthesizer(elevenlabs.Config{
			APIKey:       s.APIKey,
			VoiceID:      s.VoiceID,
			ModelID:      s.ModelID,
			OutputFormat: s.OutputFormat,
		})
	})

	r.RegisterTranscriber("mock", func(_ *ProviderRegistry, settings map[string]any) (speech.Transcriber, error) {
		return &mock.Transcriber{}, nil
	})

	r.RegisterSynthesizer("mock", func(_ *ProviderRegistry, settings map[string]any) (speech.Synthesizer, error) {
		return &mock.Synthesizer{}, nil
	})

	r.RegisterSender("twilio", func(_ *ProviderRegistry, settings map[string]any) (notify.Sender, error) {
		if err := configutil.ValidateSettings(settings, configutil.Schema{
			Required:     []string{"account_sid", "auth_token", "from_number"},
			AllowUnknown: true,
		}); err != nil {
			return nil, fmt.Errorf("alerts.sender: %w", err)
		}
		var s struct {
			AccountSID string `mapstructure:"account_sid"`
			AuthToken  string `mapstructure:"auth_token"`
			FromNumber string `mapstructure:"from_number"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return notify.NewTwilioSender(notify.TwilioConfig{
			AccountSID: s.AccountSID,
			AuthToken:  s.AuthToken,
			FromNumber: s.FromNumber,
		})
	})

	r.RegisterSender("mock", func(_ *ProviderRegistry, settings map[string]any) (notify.Sender, error) {
		return &mock.Sender{Delivered: true}, nil
	})

	return r
}

func classifierBaseURL(settings map[string]any) (string, error) {
	var s struct {
		BaseURL string `mapstructure:"base_url"`
	}
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return "", err
	}
	if err := configutil.RequireString(s.BaseURL, "classifiers.base_url"); err != nil {
		return "", err
	}
	return s.BaseURL, nil
}
