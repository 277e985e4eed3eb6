package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/resilience"
)

// HTTPClassifier talks to the emotion model service. The models themselves
// are a black box; this client only shapes requests and normalizes the
// returned label vocabulary.
type HTTPClassifier struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *HTTPClassifier) Name() string { return "emotion_service" }

type classifyResponse struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

func (c *HTTPClassifier) ClassifyText(ctx context.Context, text string) (emotion.Signal, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return emotion.Signal{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emotion/text", bytes.NewReader(payload))
	if err != nil {
		return emotion.Signal{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, emotion.SourceText)
}

func (c *HTTPClassifier) ClassifyVoice(ctx context.Context, audio io.Reader) (emotion.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emotion/voice", audio)
	if err != nil {
		return emotion.Signal{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req, emotion.SourceVoice)
}

func (c *HTTPClassifier) do(req *http.Request, source emotion.Source) (emotion.Signal, error) {
	resp, err := c.client().Do(req)
	if err != nil {
		return emotion.Signal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return emotion.Signal{}, resilience.RateLimitError{Provider: c.Name(), Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return emotion.Signal{}, errors.New(string(body))
	}
	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return emotion.Signal{}, err
	}
	if out.Label == "" {
		return emotion.Signal{}, errors.New("classifier returned no label")
	}
	dist := make(map[emotion.Label]float64, len(out.Scores))
	for label, score := range out.Scores {
		dist[emotion.Label(label)] = score
	}
	return emotion.NormalizeSignal(emotion.Signal{
		Emotion:      emotion.Label(out.Label),
		Confidence:   out.Confidence,
		Distribution: dist,
		Source:       source,
	}), nil
}

func (c *HTTPClassifier) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}
