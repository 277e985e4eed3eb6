package emotion

import "strings"

// synonyms aligns cross-provider label vocabularies onto the canonical set.
var synonyms = map[string]Label{
	"anger":      Angry,
	"angry":      Angry,
	"annoyed":    Angry,
	"frustrated": Angry,
	"disgust":    Disgust,
	"disgusted":  Disgust,
	"fear":       Fear,
	"fearful":    Fear,
	"anxious":    Fear,
	"anxiety":    Fear,
	"scared":     Fear,
	"worried":    Fear,
	"happy":      Happy,
	"happiness":  Happy,
	"joy":        Happy,
	"joyful":     Happy,
	"excited":    Happy,
	"content":    Happy,
	"neutral":    Neutral,
	"calm":       Neutral,
	"sad":        Sad,
	"sadness":    Sad,
	"depressed":  Sad,
	"unhappy":    Sad,
	"lonely":     Sad,
	"grief":      Sad,
}

// Normalize maps a raw provider label onto the canonical vocabulary.
// Unknown labels pass through lowercased so distributions stay comparable.
func Normalize(raw Label) Label {
	key := strings.ToLower(strings.TrimSpace(string(raw)))
	if mapped, ok := synonyms[key]; ok {
		return mapped
	}
	return Label(key)
}

// NormalizeSignal rewrites a signal's label and distribution keys onto the
// canonical vocabulary, merging scores that collapse to the same label.
func NormalizeSignal(s Signal) Signal {
	out := Signal{
		Emotion:    Normalize(s.Emotion),
		Confidence: s.Confidence,
		Source:     s.Source,
	}
	if len(s.Distribution) > 0 {
		out.Distribution = make(map[Label]float64, len(s.Distribution))
		for label, score := range s.Distribution {
			key := Normalize(label)
			if score > out.Distribution[key] {
				out.Distribution[key] = score
			}
		}
	}
	return out
}
