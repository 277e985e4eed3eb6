package convo

import "strings"

// TopicGeneral is the default when no category keyword matches.
const TopicGeneral = "general conversation"

// TopicRule is one category in the ordered topic table. Earlier rules win.
type TopicRule struct {
	Topic    string
	Keywords []string
}

// DefaultTopicRules orders categories by escalation value: emergency
// first, then concrete life domains. First matching category wins.
func DefaultTopicRules() []TopicRule {
	return []TopicRule{
		{Topic: "emergency", Keywords: []string{
			"emergency", "crisis", "urgent", "danger", "hurt myself", "suicide",
		}},
		{Topic: "finance", Keywords: []string{
			"money", "debt", "loan", "rent", "salary", "bills", "broke", "afford", "financial",
		}},
		{Topic: "family", Keywords: []string{
			"family", "mother", "father", "mom", "dad", "parents", "sister", "brother", "amma", "thaththa",
		}},
		{Topic: "education", Keywords: []string{
			"exam", "school", "university", "studies", "studying", "grades", "assignment", "class", "a/l", "o/l",
		}},
		{Topic: "career", Keywords: []string{
			"job", "work", "boss", "career", "office", "interview", "unemployed", "fired", "resign",
		}},
		{Topic: "relationship", Keywords: []string{
			"boyfriend", "girlfriend", "partner", "husband", "wife", "breakup", "broke up", "divorce", "relationship", "crush",
		}},
		{Topic: "health", Keywords: []string{
			"sick", "illness", "doctor", "hospital", "pain", "sleep", "insomnia", "tired", "headache",
		}},
		{Topic: "loneliness", Keywords: []string{
			"alone", "lonely", "isolated", "no friends", "nobody",
		}},
	}
}

// InferTopic scans recent user turns (newest first) against the ordered
// rule table. The first matching category anchors prompt construction;
// absent any match the topic defaults to general conversation.
func InferTopic(rules []TopicRule, userTurns []string) string {
	if len(rules) == 0 {
		rules = DefaultTopicRules()
	}
	for i := len(userTurns) - 1; i >= 0; i-- {
		lowered := strings.ToLower(userTurns[i])
		for _, rule := range rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(lowered, kw) {
					return rule.Topic
				}
			}
		}
	}
	return TopicGeneral
}
