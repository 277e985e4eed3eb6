package lang

import "strings"

// Language tags used across the pipeline. Canonical analysis happens in
// English; romanized Sinhala ("Singlish") gets its own tag because it
// defeats script-based detection and always routes through the model
// translator.
const (
	TagEnglish          = "en"
	TagSinhala          = "si"
	TagTamil            = "ta"
	TagRomanizedSinhala = "si-latn"
	TagUnknown          = "unknown"
)

// Canonical is the reference language all analysis runs in.
const Canonical = TagEnglish

// singlishMarkers is a fixed vocabulary of high-frequency romanized
// Sinhala tokens. Function words and verb endings, not content words, so
// the heuristic is cheap and topic independent.
var singlishMarkers = map[string]struct{}{
	"mama": {}, "mata": {}, "mage": {}, "api": {}, "apita": {},
	"oya": {}, "oyata": {}, "oyage": {}, "eya": {}, "eyata": {},
	"eka": {}, "ekak": {}, "ekka": {}, "meka": {}, "oka": {},
	"thiyenawa": {}, "tiyenawa": {}, "wenawa": {}, "venava": {},
	"karanna": {}, "karanawa": {}, "kara": {}, "keruwa": {},
	"puluwan": {}, "ba": {}, "bari": {}, "one": {}, "ona": {},
	"epa": {}, "naha": {}, "nane": {}, "ne": {}, "nam": {},
	"hari": {}, "hodai": {}, "hondai": {}, "narakai": {},
	"kohomada": {}, "monawada": {}, "mokada": {}, "ai": {},
	"dan": {}, "ada": {}, "iye": {}, "heta": {},
	"godak": {}, "poddak": {}, "tikak": {}, "hugak": {},
	"innawa": {}, "inne": {}, "hitiya": {}, "yanna": {}, "enna": {},
	"kiyanna": {}, "danne": {}, "dannawa": {}, "hithenawa": {},
	"hithata": {}, "duka": {}, "dukai": {}, "sathutui": {},
	"tharaha": {}, "baya": {}, "bayai": {}, "mahansi": {},
	"witharai": {}, "thama": {}, "thamai": {}, "wage": {},
}

// IsRomanizedSinhala applies the marker-vocabulary heuristic: the text is
// classified as romanized Sinhala when the matched-token count exceeds
// max(2, 0.2 * tokenCount).
func IsRomanizedSinhala(text string) bool {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return false
	}
	matched := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if _, ok := singlishMarkers[tok]; ok {
			matched++
		}
	}
	threshold := 0.2 * float64(len(tokens))
	if threshold < 2 {
		threshold = 2
	}
	return float64(matched) > threshold
}
