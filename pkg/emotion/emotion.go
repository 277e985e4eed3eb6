package emotion

// Label is a canonical emotion class.
type Label string

const (
	Angry   Label = "angry"
	Disgust Label = "disgust"
	Fear    Label = "fear"
	Happy   Label = "happy"
	Neutral Label = "neutral"
	Sad     Label = "sad"
)

// Canonical lists the label vocabulary in precedence order. Ties in fusion
// are broken by position in this list.
var Canonical = []Label{Angry, Disgust, Fear, Happy, Neutral, Sad}

// Source identifies which modality produced a signal.
type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
)

// Signal is one classifier's verdict for a single utterance.
type Signal struct {
	Emotion      Label
	Confidence   float64
	Distribution map[Label]float64
	Source       Source
}

// NeutralSignal is the degraded-mode stand-in when classification fails.
func NeutralSignal(source Source) Signal {
	return Signal{
		Emotion:      Neutral,
		Confidence:   0.3,
		Distribution: map[Label]float64{Neutral: 0.3},
		Source:       source,
	}
}

// Fused is the combined decision over one or two signals.
type Fused struct {
	Emotion       Label
	Confidence    float64
	Distribution  map[Label]float64
	Strategy      string
	Agreement     *bool
	LowConfidence bool
}

// Negative reports whether the label belongs to the negative-affect family
// used by the emergency notifier for medium-risk escalation.
func Negative(l Label) bool {
	switch Normalize(l) {
	case Sad, Angry, Fear, Disgust:
		return true
	}
	return false
}
