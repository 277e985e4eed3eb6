package engine

import (
	"time"

	"github.com/serenehq/serene/pkg/errorsx"
)

// Request is one inbound utterance. Text and Audio are alternatives;
// Audio is transcribed before the pipeline runs.
type Request struct {
	UserID                  string `json:"userId"`
	SessionID               string `json:"sessionId,omitempty"`
	Text                    string `json:"text,omitempty"`
	Audio                   []byte `json:"-"`
	IncludeSynthesizedAudio bool   `json:"includeSynthesizedAudio,omitempty"`
}

// Validate is the only check that can abort a request.
func (r Request) Validate() error {
	if r.UserID == "" {
		return errorsx.Invalid("userId", "is required")
	}
	if r.Text == "" && len(r.Audio) == 0 {
		return errorsx.Invalid("text", "either text or audio is required")
	}
	return nil
}

type SessionPayload struct {
	ID       string `json:"id"`
	Language string `json:"language"`
}

// TurnPayload is one recorded conversation turn. Provider and isFallback
// are populated on the assistant turn only.
type TurnPayload struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Emotion    string    `json:"emotion,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	IsFallback bool      `json:"isFallback,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type EmotionPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type FusedPayload struct {
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	Strategy      string  `json:"strategy"`
	Agreement     *bool   `json:"agreement,omitempty"`
	LowConfidence bool    `json:"lowConfidence,omitempty"`
}

type LanguagePayload struct {
	Tag                    string `json:"tag"`
	WasTranslated          bool   `json:"wasTranslated"`
	TranslationMethod      string `json:"translationMethod,omitempty"`
	UsedFallback           bool   `json:"usedFallback,omitempty"`
	ReplyTranslationFailed bool   `json:"replyTranslationFailed,omitempty"`
}

type AudioPayload struct {
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// Response is the single client-facing payload. Immutable once built.
type Response struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Session       SessionPayload  `json:"session"`
	UserTurn      TurnPayload     `json:"userTurn"`
	AssistantTurn TurnPayload     `json:"assistantTurn"`
	Emotion       EmotionPayload  `json:"emotion"`
	FusedEmotion  *FusedPayload   `json:"fusedEmotion,omitempty"`
	Language      LanguagePayload `json:"language"`
	Audio         *AudioPayload   `json:"audio,omitempty"`
	ElapsedMS     int64           `json:"elapsedMs"`
}
