// Package topic tags widget messages with coarse subject labels used to
// triage leads in the inbox.
package topic

import "strings"

// keyword groups in priority order; a label is emitted at most once.
var groups = []struct {
	label    string
	keywords []string
}{
	{"pricing", []string{"price", "pricing", "cost", "fee", "plan"}},
	{"setup", []string{"install", "setup", "script", "embed", "widget"}},
	{"languages", []string{"language", "spanish", "german", "arabic", "farsi", "persian"}},
	{"integration", []string{"integrat", "zapier", "api", "webhook"}},
}

// Fallback is the label applied when no keyword group matches.
const Fallback = "general"

// Classify returns the topic labels matched by text, in fixed priority
// order (pricing, setup, languages, integration). It never returns an
// empty slice. Matching is a case-insensitive substring test.
func Classify(text string) []string {
	low := strings.ToLower(text)

	var topics []string
	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(low, kw) {
				topics = append(topics, g.label)
				break
			}
		}
	}

	if len(topics) == 0 {
		topics = append(topics, Fallback)
	}
	return topics
}
