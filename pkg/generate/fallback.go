package generate

import "github.com/serenehq/serene/pkg/emotion"

// fallbackTemplates are the terminal static replies used when the whole
// provider chain is exhausted, keyed by fused emotion.
var fallbackTemplates = map[emotion.Label]string{
	emotion.Sad: "I hear how heavy things feel right now, and I'm glad you told me. " +
		"You don't have to carry this alone. Would you like to tell me a little more about what's been weighing on you?",
	emotion.Angry: "It sounds like something really got under your skin, and that frustration is completely understandable. " +
		"I'm here, take your time. What happened?",
	emotion.Fear: "That sounds genuinely frightening, and it makes sense that you feel this way. " +
		"You're not alone in this moment. Can you tell me what's worrying you most?",
	emotion.Disgust: "Something clearly feels very wrong to you, and your reaction is valid. " +
		"I'm listening. What's been going on?",
	emotion.Happy: "I can feel some brightness in what you shared, and that's lovely to hear. " +
		"I'd love to hear more about what's been going well for you.",
	emotion.Neutral: "Thank you for sharing that with me. I'm here and listening. " +
		"How have you been feeling lately?",
}

// FallbackReply returns the emotion-keyed static template, defaulting to
// the neutral one for unknown labels.
func FallbackReply(label emotion.Label) string {
	if reply, ok := fallbackTemplates[emotion.Normalize(label)]; ok {
		return reply
	}
	return fallbackTemplates[emotion.Neutral]
}
