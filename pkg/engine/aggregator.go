package engine

import (
	"time"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/generate"
	"github.com/serenehq/serene/pkg/lang"
)

// AggregateInput is everything the final assembly consumes.
type AggregateInput struct {
	Session       convo.Session
	UserTurn      convo.Message
	AssistantTurn convo.Message
	Fused         emotion.Fused
	BothSignals   bool
	Reply         generate.Reply
	Normalized    lang.Normalized
	BackTranslate lang.BackTranslated
	Audio         *AudioPayload
	Elapsed       time.Duration
}

// Aggregate builds the final payload. Pure assembly; never fails, and
// success is true on every path that reaches it.
func Aggregate(in AggregateInput) Response {
	resp := Response{
		Success: true,
		Session: SessionPayload{
			ID:       in.Session.ID,
			Language: in.Normalized.LanguageTag,
		},
		UserTurn: TurnPayload{
			ID:         in.UserTurn.ID,
			Role:       in.UserTurn.Role,
			Content:    in.UserTurn.Content,
			Emotion:    string(in.UserTurn.Emotion),
			Confidence: in.UserTurn.Confidence,
			CreatedAt:  in.UserTurn.CreatedAt,
		},
		AssistantTurn: TurnPayload{
			ID:         in.AssistantTurn.ID,
			Role:       in.AssistantTurn.Role,
			Content:    in.AssistantTurn.Content,
			Provider:   in.Reply.ProviderID,
			IsFallback: in.Reply.IsFallback,
			CreatedAt:  in.AssistantTurn.CreatedAt,
		},
		Emotion: EmotionPayload{
			Label:      string(in.Fused.Emotion),
			Confidence: in.Fused.Confidence,
		},
		Language: LanguagePayload{
			Tag:                    in.Normalized.LanguageTag,
			WasTranslated:          in.Normalized.WasTranslated,
			TranslationMethod:      in.Normalized.Method,
			UsedFallback:           in.Normalized.UsedFallback,
			ReplyTranslationFailed: in.BackTranslate.TranslationFailed,
		},
		Audio:     in.Audio,
		ElapsedMS: in.Elapsed.Milliseconds(),
	}
	if in.BothSignals {
		resp.FusedEmotion = &FusedPayload{
			Label:         string(in.Fused.Emotion),
			Confidence:    in.Fused.Confidence,
			Strategy:      in.Fused.Strategy,
			Agreement:     in.Fused.Agreement,
			LowConfidence: in.Fused.LowConfidence,
		}
	}
	return resp
}

// ValidationResponse is the only success=false shape; it is produced
// before the pipeline starts.
func ValidationResponse(err error, elapsed time.Duration) Response {
	return Response{
		Success:   false,
		Error:     err.Error(),
		ElapsedMS: elapsed.Milliseconds(),
	}
}
