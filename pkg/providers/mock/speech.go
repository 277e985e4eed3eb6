package mock

import (
	"context"
	"io"

	"github.com/serenehq/serene/pkg/notify"
	"github.com/serenehq/serene/pkg/speech"
)

// Transcriber returns a canned transcript for any audio clip.
type Transcriber struct {
	Transcript string
	Err        error
	Calls      int
}

func (t *Transcriber) Name() string { return "mock_transcriber" }

func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	t.Calls++
	if t.Err != nil {
		return "", t.Err
	}
	if t.Transcript == "" {
		return "mock transcript", nil
	}
	return t.Transcript, nil
}

// Synthesizer returns canned audio bytes.
type Synthesizer struct {
	Audio []byte
	Err   error
	Calls int
}

func (s *Synthesizer) Name() string { return "mock_synthesizer" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Audio) == 0 {
		return []byte("mock audio"), nil
	}
	return s.Audio, nil
}

// Sender records alert deliveries without sending anything.
type Sender struct {
	Sent      []string
	Delivered bool
	Err       error
}

func (s *Sender) Name() string { return "mock_sender" }

func (s *Sender) Send(ctx context.Context, address, content string) (bool, error) {
	s.Sent = append(s.Sent, address)
	if s.Err != nil {
		return false, s.Err
	}
	return s.Delivered, s.Err
}

var (
	_ speech.Transcriber = (*Transcriber)(nil)
	_ speech.Synthesizer = (*Synthesizer)(nil)
	_ notify.Sender      = (*Sender)(nil)
)
