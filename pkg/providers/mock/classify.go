package mock

import (
	"context"
	"io"

	"github.com/serenehq/serene/pkg/classify"
	"github.com/serenehq/serene/pkg/emotion"
)

type ClassifierConfig struct {
	Signal emotion.Signal
	Err    error
}

// TextClassifier returns a canned emotion signal for any text.
type TextClassifier struct {
	cfg   ClassifierConfig
	Calls int
}

func NewTextClassifier(cfg ClassifierConfig) *TextClassifier {
	if cfg.Signal.Emotion == "" && cfg.Err == nil {
		cfg.Signal = emotion.NeutralSignal(emotion.SourceText)
	}
	return &TextClassifier{cfg: cfg}
}

func (c *TextClassifier) Name() string { return "mock_text_classifier" }

func (c *TextClassifier) ClassifyText(ctx context.Context, text string) (emotion.Signal, error) {
	c.Calls++
	if c.cfg.Err != nil {
		return emotion.Signal{}, c.cfg.Err
	}
	return c.cfg.Signal, nil
}

// VoiceClassifier returns a canned emotion signal for any audio.
type VoiceClassifier struct {
	cfg   ClassifierConfig
	Calls int
}

func NewVoiceClassifier(cfg ClassifierConfig) *VoiceClassifier {
	if cfg.Signal.Emotion == "" && cfg.Err == nil {
		cfg.Signal = emotion.NeutralSignal(emotion.SourceVoice)
	}
	return &VoiceClassifier{cfg: cfg}
}

func (c *VoiceClassifier) Name() string { return "mock_voice_classifier" }

func (c *VoiceClassifier) ClassifyVoice(ctx context.Context, audio io.Reader) (emotion.Signal, error) {
	c.Calls++
	if c.cfg.Err != nil {
		return emotion.Signal{}, c.cfg.Err
	}
	return c.cfg.Signal, nil
}

var (
	_ classify.TextClassifier  = (*TextClassifier)(nil)
	_ classify.VoiceClassifier = (*VoiceClassifier)(nil)
)
