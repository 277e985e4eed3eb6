package generate

import "strings"

// ScopeCategory is a non-emotional-support intent the assistant declines.
type ScopeCategory struct {
	Name     string
	Keywords []string
}

// DefaultScopeCategories lists out-of-scope intents in match order.
func DefaultScopeCategories() []ScopeCategory {
	return []ScopeCategory{
		{Name: "technical support", Keywords: []string{
			"reset my password", "password reset", "login issue", "can't log in",
			"install", "wifi", "router", "printer", "fix my phone", "fix my laptop",
			"not working", "error code", "update the app",
		}},
		{Name: "billing", Keywords: []string{
			"refund", "invoice", "billing", "charged twice", "payment failed",
			"subscription", "cancel my plan",
		}},
		{Name: "factual trivia", Keywords: []string{
			"what is the capital", "who won", "when was", "how many countries",
			"tallest", "largest", "population of",
		}},
		{Name: "coding or math", Keywords: []string{
			"write a function", "debug", "code", "python", "javascript", "sql",
			"solve this equation", "calculate", "algebra", "derivative",
		}},
		{Name: "legal, medical, or financial advice", Keywords: []string{
			"legal advice", "lawsuit", "sue", "contract review", "diagnose",
			"prescription", "dosage", "which medication", "investment advice",
			"stock tips", "which stocks", "tax filing",
		}},
	}
}

// emotionalVocabulary marks a turn as emotional-support even when a scope
// keyword also matches; such turns are never redirected.
var emotionalVocabulary = []string{
	"feel", "feeling", "felt", "sad", "happy", "angry", "anxious", "anxiety",
	"depressed", "depression", "lonely", "alone", "stressed", "stress",
	"worried", "worry", "scared", "afraid", "cry", "crying", "hopeless",
	"overwhelmed", "hurt", "heartbroken", "grief", "upset", "miserable",
	"exhausted", "tired of", "can't cope", "struggling",
}

// ScopeGuard screens messages for clear non-support intent.
type ScopeGuard struct {
	categories []ScopeCategory
	lookback   int
}

func NewScopeGuard(categories []ScopeCategory, lookback int) *ScopeGuard {
	if len(categories) == 0 {
		categories = DefaultScopeCategories()
	}
	if lookback <= 0 {
		lookback = 3
	}
	return &ScopeGuard{categories: categories, lookback: lookback}
}

// Check scans the current turn and the last few user turns. A category
// match counts only when the same turn carries no emotional vocabulary.
// Returns the detected category name and whether the guard fired.
func (g *ScopeGuard) Check(currentText string, recentUserTurns []string) (string, bool) {
	turns := []string{currentText}
	start := len(recentUserTurns) - g.lookback
	if start < 0 {
		start = 0
	}
	turns = append(turns, recentUserTurns[start:]...)

	for _, turn := range turns {
		lowered := strings.ToLower(turn)
		if hasEmotionalVocabulary(lowered) {
			continue
		}
		for _, cat := range g.categories {
			for _, kw := range cat.Keywords {
				if strings.Contains(lowered, kw) {
					return cat.Name, true
				}
			}
		}
	}
	return "", false
}

// BoundaryMessage is the fixed redirect reply for an out-of-scope intent.
func BoundaryMessage(category string) string {
	return "It sounds like you're asking about " + category + ", which is outside what I can help with. " +
		"I'm here to support you emotionally. If something is weighing on you or you just want to talk " +
		"about how you're feeling, I'm listening."
}

func hasEmotionalVocabulary(lowered string) bool {
	for _, word := range emotionalVocabulary {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}
