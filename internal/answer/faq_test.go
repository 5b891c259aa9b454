package answer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autosupport-ai/widget-backend/internal/model"
)

func demoGrounding() Grounding {
	return Grounding{
		Business: &model.Business{ID: 1, Name: "Demo Coaching Program"},
		FAQs: []model.FAQ{
			{Question: "How long does it take to install the widget?", Answer: "Usually under 5 minutes."},
			{Question: "Can the assistant answer in multiple languages?", Answer: "Yes, more than 20 languages."},
		},
	}
}

func TestFAQGeneratorMatchesKeyword(t *testing.T) {
	g := NewFAQGenerator()

	got, err := g.Generate(context.Background(), demoGrounding(), "how do I install this?")
	require.NoError(t, err)
	assert.Equal(t, "Usually under 5 minutes.", got)
}

func TestFAQGeneratorOnlyFirstSixWordsConsidered(t *testing.T) {
	g := NewFAQGenerator()

	got, err := g.Generate(context.Background(), demoGrounding(),
		"um okay so about that thing install")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, got)
}

func TestFAQGeneratorFallsBackToContactRequest(t *testing.T) {
	g := NewFAQGenerator()

	got, err := g.Generate(context.Background(), demoGrounding(), "refunds?")
	require.NoError(t, err)
	assert.Contains(t, got, "name and email")
}

func TestSystemPromptIncludesBusinessAndFAQ(t *testing.T) {
	p := systemPrompt(demoGrounding())

	assert.Contains(t, p, `"Demo Coaching Program"`)
	assert.Contains(t, p, "Q: How long does it take to install the widget?")
	assert.Contains(t, p, "Supported languages include:")
}

func TestSystemPromptCapsFAQEntries(t *testing.T) {
	g := demoGrounding()
	g.FAQs = nil
	for i := 0; i < 20; i++ {
		g.FAQs = append(g.FAQs, model.FAQ{Question: "q", Answer: "a"})
	}

	p := systemPrompt(g)
	assert.Equal(t, maxPromptFAQs, strings.Count(p, "Q: q"))
}

func TestSystemPromptEmptyFAQ(t *testing.T) {
	g := demoGrounding()
	g.FAQs = nil

	assert.Contains(t, systemPrompt(g), "No FAQ was provided yet.")
}
