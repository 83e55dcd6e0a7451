package api

import (
	"context"
	"time"
)

// RunRecord is the archived summary of one terminal lineage.
type RunRecord struct {
	ID             string
	Query          string
	Intent         Intent
	Status         Status
	IterationsUsed int
	FindingCount   int
	Report         string
	FailReason     string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RunFilter selects archived runs. Zero values mean "no filter" for that
// field.
type RunFilter struct {
	Status Status
	Intent Intent
}

// Engine drives one research lineage at a time from query to terminal
// status.
type Engine interface {
	// Run executes the full pipeline synchronously and returns the
	// terminal lineage. The returned error is non-nil exactly when the
	// lineage ends in StatusFailed; recoverable collaborator failures
	// are absorbed inside the steps and never surface here.
	Run(ctx context.Context, req Request) (*Lineage, error)

	// GetRun looks up an archived run by lineage ID.
	// Returns an error if the run is not found.
	GetRun(ctx context.Context, id string) (RunRecord, error)

	// ListRuns returns archived runs matching the given filter.
	// If the filter is zero-valued, all runs are returned.
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
}
