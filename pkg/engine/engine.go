package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serenehq/serene/pkg/classify"
	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/generate"
	"github.com/serenehq/serene/pkg/lang"
	"github.com/serenehq/serene/pkg/llm"
	"github.com/serenehq/serene/pkg/logging"
	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/notify"
	"github.com/serenehq/serene/pkg/observers"
	"github.com/serenehq/serene/pkg/resilience"
	"github.com/serenehq/serene/pkg/risk"
	"github.com/serenehq/serene/pkg/speech"
	"github.com/serenehq/serene/pkg/translate"
)

// Deps are the pipeline's collaborators. Every field is injectable so
// tests can substitute stubs; Build resolves them from config.
type Deps struct {
	Store           convo.Store
	Primary         translate.Provider
	Secondary       translate.Provider
	TextClassifier  classify.TextClassifier
	VoiceClassifier classify.VoiceClassifier
	Chain           *llm.Chain
	Sender          notify.Sender
	Transcriber     speech.Transcriber
	Synthesizer     speech.Synthesizer
	Observer        metrics.Observer
	Logger          *slog.Logger
}

// Engine orchestrates the message-processing pipeline.
type Engine struct {
	cfg  Config
	log  *slog.Logger
	obs  metrics.Observer
	aobs *metrics.AsyncObserver

	store          convo.Store
	contexts       *convo.Manager
	normalizer     *lang.Normalizer
	backTranslator *lang.BackTranslator
	detector       *risk.Detector
	fuser          *emotion.Fuser
	textClassifier classify.TextClassifier
	voiceClassify  classify.VoiceClassifier
	generator      *generate.Generator
	notifier       *notify.Notifier
	transcriber    speech.Transcriber
	synthesizer    speech.Synthesizer

	stageTimeout time.Duration
	storeRetry   resilience.RetryPolicy

	// background persistence in flight; drained on Close
	wg sync.WaitGroup
}

// NewEngine assembles an engine from explicit collaborators. No I/O.
func NewEngine(cfg Config, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	obs := deps.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	if deps.Store == nil {
		deps.Store = convo.NewMemoryStore()
	}

	window := cfg.Pipeline.ContextWindow
	stageTimeout := time.Duration(cfg.Pipeline.StageTimeoutMS) * time.Millisecond
	if stageTimeout <= 0 {
		stageTimeout = 10 * time.Second
	}

	normalizer := lang.NewNormalizer(deps.Primary, deps.Secondary, logging.NewComponentLogger(log, "normalizer"))

	// Replies rendered back into the user's language keep their warmth.
	backSecondary := deps.Secondary
	if lt, ok := backSecondary.(*translate.LLMTranslator); ok {
		backSecondary = lt.WithTonePreservation()
	}
	backTranslator := lang.NewBackTranslator(deps.Primary, backSecondary, logging.NewComponentLogger(log, "back_translator"))
	detector := risk.NewDetector(risk.RuleTable{
		High:   cfg.Risk.HighKeywords,
		Medium: cfg.Risk.MediumKeywords,
	})
	fuser := emotion.NewFuser(emotion.FuserConfig{
		Strategy:      cfg.Fusion.Strategy,
		TextWeight:    cfg.Fusion.TextWeight,
		VoiceWeight:   cfg.Fusion.VoiceWeight,
		MinConfidence: cfg.Fusion.MinConfidence,
	})
	contexts := convo.NewManager(deps.Store, nil, window, logging.NewComponentLogger(log, "context"))

	generator := generate.NewGenerator(
		generate.NewScopeGuard(nil, 0),
		deps.Chain,
		logging.NewComponentLogger(log, "generator"),
	)
	generator.SetObserver(obs)

	notifier := notify.NewNotifier(cfg.Alerts.Enabled, deps.Store, deps.Store, deps.Sender,
		logging.NewComponentLogger(log, "notifier"))
	notifier.SetObserver(obs)

	return &Engine{
		cfg:            cfg,
		log:            logging.NewComponentLogger(log, "engine"),
		obs:            obs,
		store:          deps.Store,
		contexts:       contexts,
		normalizer:     normalizer,
		backTranslator: backTranslator,
		detector:       detector,
		fuser:          fuser,
		textClassifier: deps.TextClassifier,
		voiceClassify:  deps.VoiceClassifier,
		generator:      generator,
		notifier:       notifier,
		transcriber:    deps.Transcriber,
		synthesizer:    deps.Synthesizer,
		stageTimeout:   stageTimeout,
		storeRetry:     resilience.NewRetryPolicy(2, 200*time.Millisecond),
	}
}

// Build resolves every collaborator from config through the registry and
// assembles the engine. The service entrypoint uses this; tests use
// NewEngine directly.
func Build(cfg Config, reg *ProviderRegistry, log *slog.Logger) (*Engine, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if log == nil {
		log = slog.Default()
	}

	store, err := buildStore(cfg, log)
	if err != nil {
		return nil, err
	}

	primary, err := reg.BuildTranslator(cfg.Translation.Primary.Provider, cfg.Translation.Primary.Settings)
	if err != nil {
		return nil, fmt.Errorf("translation primary: %w", err)
	}
	var secondary translate.Provider
	if cfg.Translation.Secondary.Provider != "" {
		secondary, err = reg.BuildTranslator(cfg.Translation.Secondary.Provider, cfg.Translation.Secondary.Settings)
		if err != nil {
			return nil, fmt.Errorf("translation secondary: %w", err)
		}
	}

	textClassifier, err := reg.BuildTextClassifier(cfg.Classifiers.Text.Provider, cfg.Classifiers.Text.Settings)
	if err != nil {
		return nil, fmt.Errorf("text classifier: %w", err)
	}
	var voiceClassifier classify.VoiceClassifier
	if cfg.Classifiers.Voice.Provider != "" {
		voiceClassifier, err = reg.BuildVoiceClassifier(cfg.Classifiers.Voice.Provider, cfg.Classifiers.Voice.Settings)
		if err != nil {
			return nil, fmt.Errorf("voice classifier: %w", err)
		}
	}

	attempts, err := buildAttempts(cfg.Generation, reg)
	if err != nil {
		return nil, err
	}
	chain := llm.NewChain(attempts, logging.NewComponentLogger(log, "chain"))

	var sender notify.Sender
	if cfg.Alerts.Enabled {
		sender, err = reg.BuildSender(cfg.Alerts.Sender.Provider, cfg.Alerts.Sender.Settings)
		if err != nil {
			return nil, fmt.Errorf("alert sender: %w", err)
		}
	}

	var transcriber speech.Transcriber
	if cfg.Speech.STT.Provider != "" {
		transcriber, err = reg.BuildTranscriber(cfg.Speech.STT.Provider, cfg.Speech.STT.Settings)
		if err != nil {
			return nil, fmt.Errorf("transcriber: %w", err)
		}
	}
	var synthesizer speech.Synthesizer
	if cfg.Speech.TTS.Provider != "" {
		synthesizer, err = reg.BuildSynthesizer(cfg.Speech.TTS.Provider, cfg.Speech.TTS.Settings)
		if err != nil {
			return nil, fmt.Errorf("synthesizer: %w", err)
		}
	}

	obs := observers.NewMultiObserver(
		observers.NewLoggerObserver(logging.NewComponentLogger(log, "metrics")),
		observers.NewLatencyObserver(logging.NewComponentLogger(log, "latency")),
	)
	aobs := metrics.NewAsyncObserver(obs, 1024)

	engine := NewEngine(cfg, Deps{
		Store:           store,
		Primary:         primary,
		Secondary:       secondary,
		TextClassifier:  textClassifier,
		VoiceClassifier: voiceClassifier,
		Chain:           chain,
		Sender:          sender,
		Transcriber:     transcriber,
		Synthesizer:     synthesizer,
		Observer:        aobs,
		Logger:          log,
	})
	engine.aobs = aobs
	return engine, nil
}

func buildStore(cfg Config, log *slog.Logger) (convo.Store, error) {
	var store convo.Store
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := convo.NewPostgresStore(convo.DatabaseConfig{
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			User:     cfg.Store.User,
			Password: cfg.Store.Password,
			DBName:   cfg.Store.DBName,
			SSLMode:  cfg.Store.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		store = pg
	default:
		store = convo.NewMemoryStore()
	}

	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		store = convo.NewCachedStore(store, client, cfg.Pipeline.ContextWindow,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			logging.NewComponentLogger(log, "cache"))
	}
	return store, nil
}

// buildAttempts expands providers x models x credentials into the ordered
// attempt chain.
func buildAttempts(cfg GenerationConfig, reg *ProviderRegistry) ([]llm.Attempt, error) {
	var attempts []llm.Attempt
	for _, p := range cfg.Providers {
		models := p.Models
		if len(models) == 0 {
			models = []string{""}
		}
		keys := p.APIKeys
		if len(keys) == 0 {
			keys = []string{""}
		}
		timeout := time.Duration(p.TimeoutMS) * time.Millisecond

		for ki, key := range keys {
			for _, model := range models {
				settings := cloneSettings(p.Settings)
				if model != "" {
					settings["model"] = model
				}
				if key != "" {
					settings["api_key"] = key
				}
				adapter, err := reg.BuildLLM(p.Provider, settings)
				if err != nil {
					return nil, fmt.Errorf("generation provider %s: %w", p.Provider, err)
				}
				id := p.Provider
				if model != "" {
					id += ":" + model
				}
				if len(keys) > 1 {
					id += fmt.Sprintf("#%d", ki+1)
				}
				attempts = append(attempts, llm.Attempt{ID: id, Adapter: adapter, Timeout: timeout})
			}
		}
	}
	return attempts, nil
}

func cloneSettings(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Close drains background persistence and releases resources.
func (e *Engine) Close() error {
	e.wg.Wait()
	if e.aobs != nil {
		e.aobs.Close()
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
