// Package answer provides the answer-generation capability injected into
// the chat flow: an LLM-backed generator and a local FAQ fallback for
// demo operation without any API key.
package answer

import (
	"context"

	"github.com/autosupport-ai/widget-backend/internal/model"
)

// Grounding is the business context an answer is grounded on.
type Grounding struct {
	Business *model.Business
	FAQs     []model.FAQ
}

// Generator produces an assistant reply for one visitor question.
type Generator interface {
	Generate(ctx context.Context, g Grounding, question string) (string, error)
}
