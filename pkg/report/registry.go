// Package report renders terminal research findings into a Markdown
// report. Templates are keyed by intent; an unknown or missing key falls
// back to the generic template so a run never fails just because a
// mapping is absent.
package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/petrijr/deepdive/pkg/api"
)

// ErrNoTemplate is returned when neither the requested template nor the
// generic fallback is registered.
var ErrNoTemplate = fmt.Errorf("no template registered")

// reportData is the input every template renders from.
type reportData struct {
	Title      string
	Query      string
	Intent     string
	Iterations int
	Findings   []api.Finding
	Sources    []source
	Caveat     string
}

// source is a numbered citation entry.
type source struct {
	N   int
	URL string
}

// Registry maps intents to templates.
type Registry struct {
	templates map[api.Intent]*template.Template
	generic   *template.Template
}

// Ensure Registry implements api.Renderer.
var _ api.Renderer = (*Registry)(nil)

// NewRegistry creates a Registry pre-loaded with the built-in templates
// for every classified intent plus the generic fallback.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[api.Intent]*template.Template)}
	r.generic = mustParse("generic", genericTemplate)
	r.Register(api.IntentComparison, mustParse("comparison", comparisonTemplate))
	r.Register(api.IntentDeepDive, mustParse("deep_dive", deepDiveTemplate))
	r.Register(api.IntentSurvey, mustParse("survey", surveyTemplate))
	r.Register(api.IntentTutorial, mustParse("tutorial", tutorialTemplate))
	return r
}

// NewEmptyRegistry creates a Registry with no templates at all.
// Rendering through it always fails; it exists for callers that register
// their own template set.
func NewEmptyRegistry() *Registry {
	return &Registry{templates: make(map[api.Intent]*template.Template)}
}

// Register installs or replaces the template for an intent.
func (r *Registry) Register(intent api.Intent, tmpl *template.Template) {
	r.templates[intent] = tmpl
}

// RegisterGeneric installs or replaces the generic fallback template.
func (r *Registry) RegisterGeneric(tmpl *template.Template) {
	r.generic = tmpl
}

// Render renders the findings of a terminal state through the template
// for the given intent, falling back to the generic template when the
// intent has no mapping.
func (r *Registry) Render(intent api.Intent, st api.State) (string, error) {
	tmpl, ok := r.templates[intent]
	if !ok {
		tmpl = r.generic
	}
	if tmpl == nil {
		return "", ErrNoTemplate
	}

	data := buildData(st)
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		// A data error in a specific template still has the generic
		// fallback; only a generic failure is terminal.
		if tmpl != r.generic && r.generic != nil {
			sb.Reset()
			if gerr := r.generic.Execute(&sb, data); gerr != nil {
				return "", fmt.Errorf("render fallback: %w", gerr)
			}
			return sb.String(), nil
		}
		return "", fmt.Errorf("render: %w", err)
	}
	return sb.String(), nil
}

func buildData(st api.State) reportData {
	data := reportData{
		Title:      st.Query,
		Query:      st.Query,
		Intent:     string(st.Intent),
		Iterations: st.Iteration,
		Findings:   st.Findings,
		Sources:    collectSources(st.Findings),
	}
	if len(st.Findings) == 0 {
		data.Caveat = "No findings could be gathered for this query; the report below is necessarily incomplete."
	}
	return data
}

// collectSources returns the unique provenance URLs in findings order,
// which keeps citation numbering stable across identical runs.
func collectSources(findings []api.Finding) []source {
	seen := make(map[string]struct{}, len(findings))
	var sources []source
	for _, f := range findings {
		if f.URL == "" {
			continue
		}
		if _, dup := seen[f.URL]; dup {
			continue
		}
		seen[f.URL] = struct{}{}
		sources = append(sources, source{N: len(sources) + 1, URL: f.URL})
	}
	return sources
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}
