package risk

// Level is the coarse severity classification driving escalation.
type Level string

const (
	LevelNone   Level = "none"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// RuleTable holds ordered keyword sets per level. High-risk matches take
// absolute precedence over medium ones.
type RuleTable struct {
	High   []string
	Medium []string
}

// DefaultRules covers crisis language in plain English plus common
// romanized Sinhala phrases. Substring match, case-insensitive, no
// negation handling (known precision limit).
func DefaultRules() RuleTable {
	return RuleTable{
		High: []string{
			"suicide",
			"kill myself",
			"end my life",
			"end it all",
			"want to die",
			"better off dead",
			"no reason to live",
			"giving up",
			"give up on life",
			"nothing matters",
			"hurt myself",
			"harm myself",
			"self harm",
			"self-harm",
			"cut myself",
			"overdose",
			"goodbye forever",
			"mata maranna one",
			"diviyata samu",
		},
		Medium: []string{
			"hopeless",
			"worthless",
			"can't go on",
			"cannot go on",
			"no point",
			"empty inside",
			"hate myself",
			"hate my life",
			"so alone",
			"nobody cares",
			"no one cares",
			"tired of living",
			"can't take it anymore",
			"cannot take it anymore",
			"burden to everyone",
			"epa wela",
			"mata madi",
		},
	}
}
