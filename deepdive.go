package deepdive

import (
	"context"
	"database/sql"

	"github.com/petrijr/deepdive/internal/engine"
	"github.com/petrijr/deepdive/internal/history"
	"github.com/petrijr/deepdive/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	State                = api.State
	Delta                = api.Delta
	Finding              = api.Finding
	Critique             = api.Critique
	Request              = api.Request
	Lineage              = api.Lineage
	RunRecord            = api.RunRecord
	RunFilter            = api.RunFilter
	Status               = api.Status
	Intent               = api.Intent
	Verdict              = api.Verdict
	Policy               = api.Policy
	RetryPolicy          = api.RetryPolicy
	EmptyFindingsPolicy  = api.EmptyFindingsPolicy
	Collaborators        = api.Collaborators
	Classifier           = api.Classifier
	Planner              = api.Planner
	Searcher             = api.Searcher
	Critic               = api.Critic
	Renderer             = api.Renderer
	SearchResult         = api.SearchResult
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	StatusIdle      = api.StatusIdle
	StatusRunning   = api.StatusRunning
	StatusSucceeded = api.StatusSucceeded
	StatusFailed    = api.StatusFailed
)

// Re-export intent and verdict values.

const (
	IntentUnclassified = api.IntentUnclassified
	IntentComparison   = api.IntentComparison
	IntentDeepDive     = api.IntentDeepDive
	IntentSurvey       = api.IntentSurvey
	IntentTutorial     = api.IntentTutorial

	VerdictSufficient   = api.VerdictSufficient
	VerdictInsufficient = api.VerdictInsufficient

	EmptyFindingsFail    = api.EmptyFindingsFail
	EmptyFindingsProceed = api.EmptyFindingsProceed
)

// Engine constructors.
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine that keeps its run history in memory.
func NewInMemoryEngine(collab Collaborators, policy Policy) (Engine, error) {
	return engine.New(engine.Config{
		Collaborators: collab,
		Policy:        policy,
	})
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(collab Collaborators, policy Policy, obs Observer) (Engine, error) {
	return engine.New(engine.Config{
		Collaborators: collab,
		Policy:        policy,
		Observer:      obs,
	})
}

// NewSQLiteEngine returns an Engine that archives finished runs in a
// SQLite database. The active run still lives in memory; only terminal
// records are persisted.
func NewSQLiteEngine(db *sql.DB, collab Collaborators, policy Policy) (Engine, error) {
	store, err := history.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Collaborators: collab,
		Policy:        policy,
		History:       store,
	})
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, collab Collaborators, policy Policy, obs Observer) (Engine, error) {
	store, err := history.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Collaborators: collab,
		Policy:        policy,
		Observer:      obs,
		History:       store,
	})
}

// Convenience helpers that just forward to the underlying Engine.

// Run executes a research request synchronously and returns its lineage.
func Run(ctx context.Context, eng Engine, req Request) (*Lineage, error) {
	return eng.Run(ctx, req)
}

// GetRun fetches an archived run record by ID.
func GetRun(ctx context.Context, eng Engine, id string) (RunRecord, error) {
	return eng.GetRun(ctx, id)
}

// ListRuns lists archived run records matching the given filter.
func ListRuns(ctx context.Context, eng Engine, filter RunFilter) ([]RunRecord, error) {
	return eng.ListRuns(ctx, filter)
}
