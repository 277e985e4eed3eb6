package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	Server      ServerConfig      `mapstructure:"server"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Fusion      FusionConfig      `mapstructure:"fusion"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Translation TranslationConfig `mapstructure:"translation"`
	Classifiers ClassifiersConfig `mapstructure:"classifiers"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Speech      SpeechConfig      `mapstructure:"speech"`
	Store       StoreConfig       `mapstructure:"store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
}

// VendorConfig names a registered provider plus its free-form settings.
type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	DrainTimeoutMS int    `mapstructure:"drain_timeout_ms"`
}

type PipelineConfig struct {
	StageTimeoutMS int `mapstructure:"stage_timeout_ms"`
	ContextWindow  int `mapstructure:"context_window"`
}

type FusionConfig struct {
	Strategy      string  `mapstructure:"strategy"`
	TextWeight    float64 `mapstructure:"text_weight"`
	VoiceWeight   float64 `mapstructure:"voice_weight"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// RiskConfig overrides the built-in keyword taxonomies when present.
type RiskConfig struct {
	HighKeywords   []string `mapstructure:"high_keywords"`
	MediumKeywords []string `mapstructure:"medium_keywords"`
}

type TranslationConfig struct {
	Primary   VendorConfig `mapstructure:"primary"`
	Secondary VendorConfig `mapstructure:"secondary"`
}

type ClassifiersConfig struct {
	Text  VendorConfig `mapstructure:"text"`
	Voice VendorConfig `mapstructure:"voice"`
}

// GenProviderConfig is one generation provider with its ordered model and
// credential variants. The engine expands providers x models x keys into
// the attempt chain.
type GenProviderConfig struct {
	Provider  string         `mapstructure:"provider"`
	Models    []string       `mapstructure:"models"`
	APIKeys   []string       `mapstructure:"api_keys"`
	Settings  map[string]any `mapstructure:"settings"`
	TimeoutMS int            `mapstructure:"timeout_ms"`
}

type GenerationConfig struct {
	Providers []GenProviderConfig `mapstructure:"providers"`
}

type SpeechConfig struct {
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type AlertsConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Sender  VendorConfig `mapstructure:"sender"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.drain_timeout_ms", 10000)
	v.SetDefault("pipeline.stage_timeout_ms", 10000)
	v.SetDefault("pipeline.context_window", 10)
	v.SetDefault("fusion.strategy", "ensemble")
	v.SetDefault("fusion.text_weight", 0.6)
	v.SetDefault("fusion.voice_weight", 0.4)
	v.SetDefault("fusion.min_confidence", 0.55)
	v.SetDefault("translation.primary.provider", "libretranslate")
	v.SetDefault("translation.secondary.provider", "llm")
	v.SetDefault("classifiers.text.provider", "emotion_service")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.sslmode", "disable")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl_seconds", 600)
	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.sender.provider", "twilio")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "postgres", "memory":
	default:
		return fmt.Errorf("store.driver must be postgres or memory, got %q", c.Store.Driver)
	}
	if len(c.Generation.Providers) == 0 {
		return fmt.Errorf("generation.providers must list at least one provider")
	}
	for i, p := range c.Generation.Providers {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("generation.providers[%d].provider is required", i)
		}
	}
	if strings.TrimSpace(c.Translation.Primary.Provider) == "" {
		return fmt.Errorf("translation.primary.provider is required")
	}
	if strings.TrimSpace(c.Classifiers.Text.Provider) == "" {
		return fmt.Errorf("classifiers.text.provider is required")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	cfg.Store.Host = os.ExpandEnv(cfg.Store.Host)
	cfg.Store.User = os.ExpandEnv(cfg.Store.User)
	cfg.Store.Password = os.ExpandEnv(cfg.Store.Password)
	cfg.Store.DBName = os.ExpandEnv(cfg.Store.DBName)
	cfg.Cache.Addr = os.ExpandEnv(cfg.Cache.Addr)
	cfg.Cache.Password = os.ExpandEnv(cfg.Cache.Password)
	cfg.Translation.Primary.Settings = expandSettings(cfg.Translation.Primary.Settings)
	cfg.Translation.Secondary.Settings = expandSettings(cfg.Translation.Secondary.Settings)
	cfg.Classifiers.Text.Settings = expandSettings(cfg.Classifiers.Text.Settings)
	cfg.Classifiers.Voice.Settings = expandSettings(cfg.Classifiers.Voice.Settings)
	cfg.Speech.STT.Settings = expandSettings(cfg.Speech.STT.Settings)
	cfg.Speech.TTS.Settings = expandSettings(cfg.Speech.TTS.Settings)
	cfg.Alerts.Sender.Settings = expandSettings(cfg.Alerts.Sender.Settings)
	for i := range cfg.Generation.Providers {
		p := &cfg.Generation.Providers[i]
		p.Settings = expandSettings(p.Settings)
		for j := range p.APIKeys {
			p.APIKeys[j] = os.ExpandEnv(p.APIKeys[j])
		}
	}
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}
