package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"docqa/models"
)

// Generator produces an answer for a fully composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator sends prompts to the Gemini completion API. One call per
// prompt, no conversation state.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator wraps an existing genai client.
func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// Generate returns the model's completion for the prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w: %w", models.ErrTransient, err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("completion api returned an empty response")
	}
	return text, nil
}
