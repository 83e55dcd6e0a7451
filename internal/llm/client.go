// Package llm implements the language-model collaborators: the query
// classifier, the research planner, and the critic. All three share one
// text-generation client and keep their prompt and parsing contracts
// local, so the engine only ever sees typed values.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// TextGenerator is the narrow surface the collaborators need from a model
// provider. Tests substitute a deterministic stub.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIClient generates text using Google's Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// Ensure GenAIClient implements TextGenerator.
var _ TextGenerator = (*GenAIClient)(nil)

// NewGenAIClient creates a new Gemini-backed text generator.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client: client,
		model:  model,
	}, nil
}

// Generate runs a single prompt and returns the response text.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no text returned")
	}
	return text, nil
}
