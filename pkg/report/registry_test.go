package report

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/deepdive/pkg/api"
)

func sampleState() api.State {
	return api.State{
		Query:  "compare raft and paxos",
		Intent: api.IntentComparison,
		Findings: []api.Finding{
			{SubQuery: "raft overview", Title: "Raft paper", URL: "https://raft.github.io", Content: "Raft is understandable."},
			{SubQuery: "paxos overview", Title: "Paxos made simple", URL: "https://example.com/paxos", Content: "Paxos is subtle."},
			{SubQuery: "raft overview", Title: "Raft wiki", URL: "https://raft.github.io", Content: "Same source again."},
		},
		Iteration: 2,
	}
}

func TestRegistry_RenderPerIntent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	st := sampleState()

	headers := map[api.Intent]string{
		api.IntentComparison: "# Comparison:",
		api.IntentDeepDive:   "# Deep Dive:",
		api.IntentSurvey:     "# Survey:",
		api.IntentTutorial:   "# Tutorial:",
	}
	for intent, header := range headers {
		out, err := r.Render(intent, st)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, header), "intent %s: got %q", intent, out[:40])
		require.Contains(t, out, "Raft paper")
		require.Contains(t, out, "## Sources")
	}
}

func TestRegistry_UnknownIntentFallsBack(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	out, err := r.Render(api.IntentUnclassified, sampleState())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "# Research Report:"), out)
}

func TestRegistry_SourcesDedupedAndNumbered(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	out, err := r.Render(api.IntentComparison, sampleState())
	require.NoError(t, err)

	// Two unique URLs out of three findings, numbered from one in first
	// appearance order.
	require.Contains(t, out, "1. https://raft.github.io")
	require.Contains(t, out, "2. https://example.com/paxos")
	require.Equal(t, 1, strings.Count(out, "https://example.com/paxos"))
	require.Equal(t, 1, strings.Count(out, "1. https://raft.github.io"))
}

func TestRegistry_EmptyFindingsCaveat(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	st := sampleState()
	st.Findings = nil

	out, err := r.Render(api.IntentDeepDive, st)
	require.NoError(t, err)
	require.Contains(t, out, "necessarily incomplete")
	require.NotContains(t, out, "## Sources")
}

func TestRegistry_Deterministic(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	st := sampleState()

	first, err := r.Render(api.IntentSurvey, st)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := r.Render(api.IntentSurvey, st)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEmptyRegistry_NoTemplate(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	_, err := r.Render(api.IntentComparison, sampleState())
	require.ErrorIs(t, err, ErrNoTemplate)
}

func TestRegistry_CustomTemplate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(api.IntentSurvey, template.Must(template.New("custom").Parse("CUSTOM {{.Query}}")))

	out, err := r.Render(api.IntentSurvey, sampleState())
	require.NoError(t, err)
	require.Equal(t, "CUSTOM compare raft and paxos", out)
}

func TestRegistry_BrokenTemplateFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(api.IntentSurvey, template.Must(template.New("broken").Parse("{{.NoSuchField}}")))

	out, err := r.Render(api.IntentSurvey, sampleState())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "# Research Report:"), out)
}
