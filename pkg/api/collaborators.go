package api

import (
	"context"
	"time"
)

// SearchResult is a single hit returned by a Searcher, before it is tied
// to the sub-query that produced it.
type SearchResult struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Classifier assigns an Intent to a raw query.
// A failed or unparseable classification is recoverable: the engine falls
// back to the configured default intent.
type Classifier interface {
	Classify(ctx context.Context, query string) (Intent, error)
}

// Planner decomposes a query into an ordered sequence of sub-queries.
// An empty or failed plan is recoverable: the engine substitutes the
// original query as the sole plan entry.
type Planner interface {
	Plan(ctx context.Context, query string, intent Intent) ([]string, error)
}

// Searcher executes one sub-query against an external search service.
// Failures are retried per the engine's retry policy and then counted as
// that sub-query's failure; they never abort sibling sub-queries.
type Searcher interface {
	Search(ctx context.Context, subQuery string) ([]SearchResult, error)
}

// Critic judges whether the findings gathered so far answer the query.
// If the critic is unreachable the engine assumes VerdictSufficient:
// terminating beats looping indefinitely on a broken critic.
type Critic interface {
	Critique(ctx context.Context, findings []Finding, query string, intent Intent) (Critique, error)
}

// Renderer turns terminal findings into the report text. Implementations
// select a template keyed by intent and must fall back to a generic
// template for unknown keys.
type Renderer interface {
	Render(intent Intent, st State) (string, error)
}

// Collaborators bundles the external services the pipeline steps call.
// All five must be non-nil to build an engine.
type Collaborators struct {
	Classifier Classifier
	Planner    Planner
	Searcher   Searcher
	Critic     Critic
	Renderer   Renderer
}

// RetryPolicy controls how an individual collaborator call is retried.
// MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// EmptyFindingsPolicy selects what happens when the very first research
// round yields nothing at all.
type EmptyFindingsPolicy string

const (
	// EmptyFindingsFail terminates the run with a failed status.
	// Further iteration cannot help when every source came back empty.
	EmptyFindingsFail EmptyFindingsPolicy = "fail"

	// EmptyFindingsProceed lets the writer produce a caveated report
	// from an empty findings set.
	EmptyFindingsProceed EmptyFindingsPolicy = "proceed"
)

// Policy carries the engine-level knobs that are not per-request.
type Policy struct {
	// DefaultIntent is assigned when classification fails or returns an
	// unknown label. Empty means "no default": an unclassified query is
	// then a fatal planning error.
	DefaultIntent Intent

	// DefaultMaxIterations applies when Request.MaxIterations is negative.
	DefaultMaxIterations int

	// MaxSubQueries caps how many plan entries are researched per round.
	MaxSubQueries int

	// MaxResultsPerQuery caps findings appended per sub-query.
	MaxResultsPerQuery int

	// CallTimeout bounds each individual collaborator call.
	CallTimeout time.Duration

	// SearchRetry is applied to each research sub-query independently.
	SearchRetry RetryPolicy

	// EmptyFindings selects the first-round-empty behaviour.
	EmptyFindings EmptyFindingsPolicy
}

// Normalize fills in zero values with the engine defaults.
func (p Policy) Normalize() Policy {
	out := p
	if out.DefaultMaxIterations <= 0 {
		out.DefaultMaxIterations = 3
	}
	if out.MaxSubQueries <= 0 {
		out.MaxSubQueries = 5
	}
	if out.MaxResultsPerQuery <= 0 {
		out.MaxResultsPerQuery = 5
	}
	if out.CallTimeout <= 0 {
		out.CallTimeout = 60 * time.Second
	}
	if out.SearchRetry.MaxAttempts <= 0 {
		out.SearchRetry.MaxAttempts = 1
	}
	if out.EmptyFindings == "" {
		out.EmptyFindings = EmptyFindingsFail
	}
	return out
}
