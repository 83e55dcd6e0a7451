package llm

import (
	"context"
	"fmt"

	"github.com/petrijr/deepdive/pkg/api"
)

const classifyPrompt = `You are an assistant that classifies a technical research query into exactly one of four categories:

1. comparison: the user explicitly asks to compare two or more things.
2. deep_dive: the user asks for an in-depth explanation of a single concept, technology, or project.
3. survey: the user asks for an overview of the main players or technologies in a field.
4. tutorial: the user asks how to accomplish a specific technical task.

Output only the final category label, with no other explanation.

User query: %q

Category label:`

// Classifier assigns an intent label to a query using a text generator.
type Classifier struct {
	gen TextGenerator
}

// Ensure Classifier implements api.Classifier.
var _ api.Classifier = (*Classifier)(nil)

// NewClassifier creates a Classifier on top of the given generator.
func NewClassifier(gen TextGenerator) *Classifier {
	return &Classifier{gen: gen}
}

func (c *Classifier) Classify(ctx context.Context, query string) (api.Intent, error) {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, query))
	if err != nil {
		return api.IntentUnclassified, fmt.Errorf("classify: %w", err)
	}

	intent, ok := api.ParseIntent(out)
	if !ok {
		return api.IntentUnclassified, fmt.Errorf("classify: unknown label %q", out)
	}
	return intent, nil
}
