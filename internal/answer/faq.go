package answer

import (
	"context"
	"strings"
)

// fallbackReply is returned when no FAQ matches, nudging the visitor to
// leave contact details so a human can follow up.
const fallbackReply = "Thanks! To help you properly, could you share your name and email " +
	"so a human can follow up?"

// FAQGenerator is the local demo-mode generator: it returns the answer of
// the first FAQ sharing a keyword with the question and never calls out.
type FAQGenerator struct{}

// NewFAQGenerator creates the local fallback generator.
func NewFAQGenerator() *FAQGenerator {
	return &FAQGenerator{}
}

// Generate matches the first six words of the question against the FAQ
// questions and returns the matching answer, or a contact-request reply.
func (g *FAQGenerator) Generate(_ context.Context, grounding Grounding, question string) (string, error) {
	words := strings.Fields(strings.ToLower(question))
	if len(words) > 6 {
		words = words[:6]
	}

	for _, faq := range grounding.FAQs {
		q := strings.ToLower(faq.Question)
		for _, w := range words {
			if strings.Contains(q, w) {
				return faq.Answer, nil
			}
		}
	}
	return fallbackReply, nil
}
