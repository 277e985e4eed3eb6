package deepgram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/serenehq/serene/pkg/logging"
	"github.com/serenehq/serene/pkg/speech"
)

type Config struct {
	APIKey     string
	Model      string
	Language   string
	SampleRate int
	Encoding   string
	// MaxWait bounds how long one transcription may run after the clip
	// has been fully streamed.
	MaxWait time.Duration
}

// Transcriber converts one complete audio clip to text over Deepgram's
// live-transcription socket. The clip is streamed in, final transcript
// segments are accumulated, and the joined text is returned once the
// connection drains.
type Transcriber struct {
	cfg    Config
	logger *slog.Logger
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram transcriber: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 15 * time.Second
	}
	return &Transcriber{
		cfg:    cfg,
		logger: logging.NewComponentLogger(slog.Default(), "deepgram_transcriber"),
	}, nil
}

func (t *Transcriber) Name() string { return "deepgram" }

func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:       t.cfg.Model,
		Language:    t.cfg.Language,
		Encoding:    t.cfg.Encoding,
		SampleRate:  t.cfg.SampleRate,
		SmartFormat: true,
	}

	cb := &collector{
		logger: t.logger,
		done:   make(chan struct{}),
	}

	dgClient, err := client.NewWSUsingCallback(connCtx, t.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		t.logger.Error("deepgram_client_create_error", "error", err.Error())
		return "", err
	}
	if connected := dgClient.Connect(); !connected {
		t.logger.Error("deepgram_connect_failed")
		return "", errors.New("deepgram connection failed")
	}
	defer dgClient.Stop()

	streamErr := make(chan error, 1)
	go func() {
		streamErr <- dgClient.Stream(audio)
	}()

	select {
	case err := <-streamErr:
		if err != nil && err != io.EOF && connCtx.Err() == nil {
			t.logger.Error("deepgram_stream_error", "error", err.Error())
			return "", err
		}
	case <-connCtx.Done():
		return "", connCtx.Err()
	}

	// The clip is fully sent; wait for the server to finish delivering
	// final segments.
	select {
	case <-cb.done:
	case <-time.After(t.cfg.MaxWait):
		t.logger.Warn("deepgram_drain_timeout")
	case <-connCtx.Done():
		return "", connCtx.Err()
	}

	transcript := cb.transcript()
	if transcript == "" {
		return "", errors.New("deepgram: empty transcript")
	}
	return transcript, nil
}

// collector accumulates final transcript segments from callback events.
type collector struct {
	logger *slog.Logger

	mu       sync.Mutex
	segments []string

	closeOnce sync.Once
	done      chan struct{}
}

func (c *collector) transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(strings.Join(c.segments, " "))
}

func (c *collector) Open(or *msginterfaces.OpenResponse) error {
	c.logger.Debug("deepgram_connection_opened")
	return nil
}

func (c *collector) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return nil
	}
	if mr.IsFinal || mr.SpeechFinal {
		c.mu.Lock()
		c.segments = append(c.segments, transcript)
		c.mu.Unlock()
		c.logger.Debug("transcript_segment", "length", len(transcript))
	}
	return nil
}

func (c *collector) Metadata(md *msginterfaces.MetadataResponse) error {
	c.logger.Debug("deepgram_metadata_received", "request_id", md.RequestID)
	return nil
}

func (c *collector) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *collector) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	return nil
}

func (c *collector) Close(cr *msginterfaces.CloseResponse) error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *collector) Error(er *msginterfaces.ErrorResponse) error {
	c.logger.Error("deepgram_error",
		"error_code", er.ErrCode,
		"error_message", er.ErrMsg)
	return nil
}

func (c *collector) UnhandledEvent(byData []byte) error {
	return nil
}

var _ speech.Transcriber = (*Transcriber)(nil)
