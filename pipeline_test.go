package deepdive

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/deepdive/pkg/api"
	"github.com/petrijr/deepdive/pkg/report"
)

// Fixed-answer collaborators for exercising the public surface.

type fixedClassifier struct{ intent api.Intent }

func (c fixedClassifier) Classify(ctx context.Context, query string) (api.Intent, error) {
	return c.intent, nil
}

type fixedPlanner struct{ plan []string }

func (p fixedPlanner) Plan(ctx context.Context, query string, intent api.Intent) ([]string, error) {
	return p.plan, nil
}

type fixedSearcher struct{}

func (fixedSearcher) Search(ctx context.Context, subQuery string) ([]api.SearchResult, error) {
	return []api.SearchResult{{
		Title:   "result for " + subQuery,
		URL:     "https://example.com/" + strings.ReplaceAll(subQuery, " ", "-"),
		Content: "content for " + subQuery,
	}}, nil
}

type fixedCritic struct{}

func (fixedCritic) Critique(ctx context.Context, findings []api.Finding, query string, intent api.Intent) (api.Critique, error) {
	return api.Critique{Verdict: api.VerdictSufficient, Rationale: "looks complete"}, nil
}

func testBuilder() *PipelineBuilder {
	return NewPipeline().
		Classifier(fixedClassifier{intent: IntentComparison}).
		Planner(fixedPlanner{plan: []string{"angle one", "angle two"}}).
		Searcher(fixedSearcher{}).
		Critic(fixedCritic{}).
		Renderer(report.NewRegistry())
}

func TestPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	eng, err := testBuilder().Build()
	require.NoError(t, err)

	ctx := context.Background()
	lin, err := Run(ctx, eng, Request{Query: "compare A and B", MaxIterations: 3})
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, lin.State.Status)
	require.Equal(t, IntentComparison, lin.State.Intent)
	require.True(t, strings.HasPrefix(lin.State.Report, "# Comparison:"), lin.State.Report)
	require.Contains(t, lin.State.Report, "result for angle one")

	rec, err := GetRun(ctx, eng, lin.ID)
	require.NoError(t, err)
	require.Equal(t, lin.State.Report, rec.Report)

	recs, err := ListRuns(ctx, eng, RunFilter{Intent: IntentComparison})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestPipeline_MissingCollaborator(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline().
		Planner(fixedPlanner{}).
		Searcher(fixedSearcher{}).
		Critic(fixedCritic{}).
		Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "classifier")
}

func TestPipeline_SQLiteHistorySurvivesEngine(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	eng, err := testBuilder().BuildSQLite(db)
	require.NoError(t, err)

	ctx := context.Background()
	lin, err := Run(ctx, eng, Request{Query: "q", MaxIterations: 1})
	require.NoError(t, err)

	// A second engine over the same database sees the archived run.
	other, err := testBuilder().BuildSQLite(db)
	require.NoError(t, err)

	rec, err := GetRun(ctx, other, lin.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, rec.Status)
	require.Equal(t, lin.State.Report, rec.Report)
}

func TestPipeline_ObserverWiring(t *testing.T) {
	t.Parallel()

	metrics := &BasicMetrics{}
	eng, err := testBuilder().
		Observer(NewCompositeObserver(metrics, nil)).
		Build()
	require.NoError(t, err)

	_, err = Run(context.Background(), eng, Request{Query: "q", MaxIterations: 1})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	require.EqualValues(t, 1, snap.RunsStarted)
	require.EqualValues(t, 1, snap.RunsSucceeded)
}
