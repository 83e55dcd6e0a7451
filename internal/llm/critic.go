package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/deepdive/pkg/api"
)

const critiquePrompt = `Critically review the research findings below against the original query.

Original query: %q
Query intent: %s

Findings:
%s

Assess completeness, accuracy, contradictions, and drift from the original query.

Answer in exactly this format:
VERDICT: SUFFICIENT or INSUFFICIENT
DIRECTIVE: <one concrete follow-up search query per DIRECTIVE line; only when INSUFFICIENT>
RATIONALE: <one short paragraph explaining the verdict>`

// Critic judges research findings using a text generator.
type Critic struct {
	gen TextGenerator
}

// Ensure Critic implements api.Critic.
var _ api.Critic = (*Critic)(nil)

// NewCritic creates a Critic on top of the given generator.
func NewCritic(gen TextGenerator) *Critic {
	return &Critic{gen: gen}
}

func (c *Critic) Critique(ctx context.Context, findings []api.Finding, query string, intent api.Intent) (api.Critique, error) {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(critiquePrompt, query, intent, formatFindings(findings)))
	if err != nil {
		return api.Critique{}, fmt.Errorf("critique: %w", err)
	}

	crit, err := ParseCritique(out)
	if err != nil {
		return api.Critique{}, fmt.Errorf("critique: %w", err)
	}
	return crit, nil
}

func formatFindings(findings []api.Finding) string {
	var sb strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. [%s] %s (%s)\n%s\n\n", i+1, f.SubQuery, f.Title, f.URL, f.Content)
	}
	return sb.String()
}

// ParseCritique reads the VERDICT/DIRECTIVE/RATIONALE line format. A
// missing or unknown verdict is an error; the engine degrades that to a
// sufficient verdict.
func ParseCritique(out string) (api.Critique, error) {
	var (
		crit        api.Critique
		sawVerdict  bool
		rationale   []string
		inRationale bool
	)
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "VERDICT:"):
			inRationale = false
			label := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(trimmed, "VERDICT:")))
			switch api.Verdict(label) {
			case api.VerdictSufficient:
				crit.Verdict = api.VerdictSufficient
				sawVerdict = true
			case api.VerdictInsufficient:
				crit.Verdict = api.VerdictInsufficient
				sawVerdict = true
			}
		case strings.HasPrefix(trimmed, "DIRECTIVE:"):
			inRationale = false
			d := strings.TrimSpace(strings.TrimPrefix(trimmed, "DIRECTIVE:"))
			if d != "" {
				crit.Directives = append(crit.Directives, d)
			}
		case strings.HasPrefix(trimmed, "RATIONALE:"):
			inRationale = true
			r := strings.TrimSpace(strings.TrimPrefix(trimmed, "RATIONALE:"))
			if r != "" {
				rationale = append(rationale, r)
			}
		case inRationale && trimmed != "":
			rationale = append(rationale, trimmed)
		}
	}

	if !sawVerdict {
		return api.Critique{}, fmt.Errorf("no verdict in response")
	}
	crit.Rationale = strings.Join(rationale, " ")
	return crit, nil
}
