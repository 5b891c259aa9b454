package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autosupport-ai/widget-backend/internal/llm"
	"github.com/autosupport-ai/widget-backend/pkg/metrics"
)

// LLMGenerator answers questions with an LLM, grounded on the business
// FAQ via the system prompt.
type LLMGenerator struct {
	client llm.Client
	model  string
}

// NewLLMGenerator creates a generator backed by the given LLM client.
// model may be empty to use the provider default.
func NewLLMGenerator(client llm.Client, model string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model}
}

// Generate produces an FAQ-grounded answer for a visitor question.
func (g *LLMGenerator) Generate(ctx context.Context, grounding Grounding, question string) (string, error) {
	start := time.Now()

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.model,
		System:      systemPrompt(grounding),
		Messages:    []llm.ChatMessage{{Role: "user", Content: question}},
		MaxTokens:   350,
		Temperature: 0.3,
	})
	if err != nil {
		metrics.RecordAnswer(g.client.Name(), "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("llm completion failed: %w", err)
	}

	metrics.RecordAnswer(g.client.Name(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return strings.TrimSpace(resp.Content), nil
}
