package speech

import (
	"context"
	"io"
)

// Transcriber defines the contract for any STT vendor implementation.
// One utterance in, one transcript out.
type Transcriber interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Transcribe converts one complete audio clip to text.
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Synthesizer defines the contract for any TTS vendor implementation.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Synthesize renders text to encoded audio bytes.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Audio is synthesized speech with its container format.
type Audio struct {
	Data   []byte
	Format string
}
