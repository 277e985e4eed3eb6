package classify

import (
	"context"
	"io"

	"github.com/serenehq/serene/pkg/emotion"
)

// TextClassifier infers an emotion signal from canonical text.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (emotion.Signal, error)
	Name() string
}

// VoiceClassifier infers an emotion signal from raw audio.
type VoiceClassifier interface {
	ClassifyVoice(ctx context.Context, audio io.Reader) (emotion.Signal, error)
	Name() string
}
