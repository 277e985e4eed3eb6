package risk

import "strings"

// Assessment is the result of screening one canonical utterance.
// Computed fresh per request, never cached.
type Assessment struct {
	Level           Level
	MatchedKeywords []string
}

// Detector screens canonical text against its rule table. Pure and
// side-effect free; independent of emotion classification.
type Detector struct {
	rules RuleTable
}

func NewDetector(rules RuleTable) *Detector {
	if len(rules.High) == 0 && len(rules.Medium) == 0 {
		rules = DefaultRules()
	}
	return &Detector{rules: rules}
}

// Detect classifies the risk level of canonical text. Any high-risk
// keyword match yields LevelHigh regardless of medium matches; medium
// keywords are only consulted when no high keyword matched.
func (d *Detector) Detect(canonicalText string) Assessment {
	lowered := strings.ToLower(canonicalText)

	if matched := matchAll(lowered, d.rules.High); len(matched) > 0 {
		return Assessment{Level: LevelHigh, MatchedKeywords: matched}
	}
	if matched := matchAll(lowered, d.rules.Medium); len(matched) > 0 {
		return Assessment{Level: LevelMedium, MatchedKeywords: matched}
	}
	return Assessment{Level: LevelNone}
}

func matchAll(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}
