package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/petrijr/deepdive/pkg/api"
)

const planPrompt = `Create a research plan for the following query by listing the most important search queries to investigate it.

User query: %q
Query intent: %s

Requirements:
1. Extract the core technical terms and concepts.
2. Prefer concrete product or project names over generic phrasing.
3. Each search query must be independent and directly searchable.
4. Return at most %d queries, one per line, with no numbering and no other text.

Search queries:`

// listItemPrefix strips "1.", "2)", "-", "*" style markers that models
// tend to add despite instructions.
var listItemPrefix = regexp.MustCompile(`^(\d+[.)]\s*|[-*]\s*)`)

// Planner decomposes a query into sub-queries using a text generator.
type Planner struct {
	gen TextGenerator

	// maxSubQueries caps how many lines of the response are kept.
	maxSubQueries int
}

// Ensure Planner implements api.Planner.
var _ api.Planner = (*Planner)(nil)

// NewPlanner creates a Planner on top of the given generator.
// maxSubQueries <= 0 defaults to 5.
func NewPlanner(gen TextGenerator, maxSubQueries int) *Planner {
	if maxSubQueries <= 0 {
		maxSubQueries = 5
	}
	return &Planner{gen: gen, maxSubQueries: maxSubQueries}
}

func (p *Planner) Plan(ctx context.Context, query string, intent api.Intent) ([]string, error) {
	out, err := p.gen.Generate(ctx, fmt.Sprintf(planPrompt, query, intent, p.maxSubQueries))
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return ParsePlanLines(out, p.maxSubQueries), nil
}

// ParsePlanLines extracts up to max sub-queries from a line-per-entry
// model response, stripping list markers and blank lines.
func ParsePlanLines(out string, max int) []string {
	var subs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listItemPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if len(line) < 3 {
			continue
		}
		subs = append(subs, line)
		if max > 0 && len(subs) == max {
			break
		}
	}
	return subs
}
