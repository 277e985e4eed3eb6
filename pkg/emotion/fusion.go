package emotion

import "sort"

// Strategy names accepted by the fuser.
const (
	StrategyWeighted = "weighted"
	StrategyVoting   = "voting"
	StrategyEnsemble = "ensemble"

	strategyTextOnly  = "text_only"
	strategyVoiceOnly = "voice_only"
)

const (
	agreementBonus     = 1.2
	disagreementFactor = 0.8
)

// FuserConfig selects the fusion strategy and its parameters.
type FuserConfig struct {
	Strategy      string
	TextWeight    float64
	VoiceWeight   float64
	MinConfidence float64
}

// Fuser combines text and voice emotion signals into one decision.
type Fuser struct {
	cfg FuserConfig
}

func NewFuser(cfg FuserConfig) *Fuser {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyWeighted
	}
	if cfg.TextWeight <= 0 && cfg.VoiceWeight <= 0 {
		cfg.TextWeight = 0.6
		cfg.VoiceWeight = 0.4
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.55
	}
	return &Fuser{cfg: cfg}
}

// Fuse combines the available signals. A single present signal passes
// through unchanged under a *_only strategy.
func (f *Fuser) Fuse(text, voice *Signal) Fused {
	if text == nil && voice == nil {
		n := NeutralSignal(SourceText)
		return Fused{
			Emotion:      n.Emotion,
			Confidence:   n.Confidence,
			Distribution: n.Distribution,
			Strategy:     strategyTextOnly,
		}
	}
	if voice == nil {
		return passthrough(*text, strategyTextOnly)
	}
	if text == nil {
		return passthrough(*voice, strategyVoiceOnly)
	}

	t := NormalizeSignal(*text)
	v := NormalizeSignal(*voice)

	switch f.cfg.Strategy {
	case StrategyVoting:
		return f.vote(t, v)
	case StrategyEnsemble:
		return f.ensemble(t, v)
	default:
		return f.weighted(t, v)
	}
}

func passthrough(s Signal, strategy string) Fused {
	n := NormalizeSignal(s)
	return Fused{
		Emotion:      n.Emotion,
		Confidence:   n.Confidence,
		Distribution: n.Distribution,
		Strategy:     strategy,
	}
}

// weighted computes score[e] = wt*text[e] + wv*voice[e] over the label
// union; the dominant emotion is the argmax with ties broken by canonical
// label order.
func (f *Fuser) weighted(t, v Signal) Fused {
	combined := make(map[Label]float64)
	for label, score := range t.Distribution {
		combined[label] += f.cfg.TextWeight * score
	}
	for label, score := range v.Distribution {
		combined[label] += f.cfg.VoiceWeight * score
	}
	if len(combined) == 0 {
		combined[Neutral] = 0
	}

	best := Neutral
	bestScore := -1.0
	for _, label := range orderedLabels(combined) {
		if combined[label] > bestScore {
			best = label
			bestScore = combined[label]
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return Fused{
		Emotion:      best,
		Confidence:   clamp01(bestScore),
		Distribution: combined,
		Strategy:     StrategyWeighted,
	}
}

// vote compares normalized top labels. Agreement earns a capped 20% bonus
// on the averaged confidence; disagreement lets the stronger signal win at
// a 20% discount.
func (f *Fuser) vote(t, v Signal) Fused {
	agree := t.Emotion == v.Emotion
	out := Fused{Strategy: StrategyVoting, Agreement: &agree}
	if agree {
		out.Emotion = t.Emotion
		out.Confidence = clamp01((t.Confidence + v.Confidence) / 2 * agreementBonus)
		out.Distribution = mergeMax(t.Distribution, v.Distribution)
		return out
	}
	winner := t
	if v.Confidence > t.Confidence {
		winner = v
	}
	out.Emotion = winner.Emotion
	out.Confidence = clamp01(winner.Confidence * disagreementFactor)
	out.Distribution = winner.Distribution
	return out
}

// ensemble prefers a confident weighted result, falls back to voting when
// the modalities agree, and otherwise returns the weighted result flagged
// low confidence.
func (f *Fuser) ensemble(t, v Signal) Fused {
	w := f.weighted(t, v)
	w.Strategy = StrategyEnsemble
	if w.Confidence >= f.cfg.MinConfidence {
		return w
	}
	voted := f.vote(t, v)
	if voted.Agreement != nil && *voted.Agreement {
		voted.Strategy = StrategyEnsemble
		return voted
	}
	w.LowConfidence = true
	return w
}

func orderedLabels(dist map[Label]float64) []Label {
	index := make(map[Label]int, len(Canonical))
	for i, label := range Canonical {
		index[label] = i
	}
	labels := make([]Label, 0, len(dist))
	for label := range dist {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ri, iKnown := index[labels[i]]
		rj, jKnown := index[labels[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return labels[i] < labels[j]
		}
	})
	return labels
}

func mergeMax(a, b map[Label]float64) map[Label]float64 {
	out := make(map[Label]float64, len(a)+len(b))
	for label, score := range a {
		out[label] = score
	}
	for label, score := range b {
		if score > out[label] {
			out[label] = score
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
