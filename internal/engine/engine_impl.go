// Package engine implements the research pipeline state machine: a fixed
// classify → plan → research → critique topology with a single conditional
// edge looping critique back to research, bounded by a hard iteration
// ceiling, and a terminal write step.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/deepdive/internal/history"
	"github.com/petrijr/deepdive/pkg/api"
)

// Config describes how to construct an engine.
// Only used inside this package; external callers use the constructors in
// the root package.
type Config struct {
	Collaborators api.Collaborators
	Policy        api.Policy
	Observer      api.Observer
	History       history.Store
}

type engineImpl struct {
	collab   api.Collaborators
	policy   api.Policy
	observer api.Observer
	history  history.Store

	// mu serializes Run: one lineage is processed end-to-end before the
	// next is accepted.
	mu sync.Mutex
}

// New creates a new Engine using the given configuration.
func New(cfg Config) (api.Engine, error) {
	c := cfg.Collaborators
	switch {
	case c.Classifier == nil:
		return nil, errors.New("engine: classifier is required")
	case c.Planner == nil:
		return nil, errors.New("engine: planner is required")
	case c.Searcher == nil:
		return nil, errors.New("engine: searcher is required")
	case c.Critic == nil:
		return nil, errors.New("engine: critic is required")
	}
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	store := cfg.History
	if store == nil {
		store = history.NewInMemoryStore()
	}
	return &engineImpl{
		collab:   c,
		policy:   cfg.Policy.Normalize(),
		observer: obs,
		history:  store,
	}, nil
}

// Step names recorded on failures and surfaced to observers.
const (
	stepClassify = "classify"
	stepPlan     = "plan"
	stepResearch = "research"
	stepCritique = "critique"
	stepWrite    = "write"
)

func (e *engineImpl) Run(ctx context.Context, req api.Request) (*api.Lineage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	maxIter := req.MaxIterations
	if maxIter < 0 {
		maxIter = e.policy.DefaultMaxIterations
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	lin := &api.Lineage{
		ID:        runID,
		StartedAt: time.Now(),
		State: api.State{
			Query:         req.Query,
			Intent:        api.IntentUnclassified,
			MaxIterations: maxIter,
			Status:        api.StatusRunning,
		},
	}

	e.observer.OnRunStart(ctx, lin)

	pos := stepClassify
	roundGain := 0
	for {
		// Cancellation is checked at every step boundary; a cancelled
		// run never flushes partial findings into a report.
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, lin, err)
		}

		before := len(lin.State.Findings)
		delta, err := e.dispatch(ctx, lin, pos, roundGain)
		if err != nil {
			return e.fail(ctx, lin, err)
		}
		lin.State = lin.State.Apply(delta)
		if pos == stepResearch {
			roundGain = len(lin.State.Findings) - before
		}

		switch pos {
		case stepClassify:
			pos = stepPlan
		case stepPlan:
			pos = stepResearch
		case stepResearch:
			pos = stepCritique
		case stepCritique:
			next := route(lin.State)
			loopBack := next == nextResearch
			e.observer.OnRouteDecision(ctx, lin, loopBack)
			if loopBack {
				pos = stepResearch
			} else {
				pos = stepWrite
			}
		case stepWrite:
			return e.succeed(ctx, lin)
		}
	}
}

// dispatch invokes the step at the given position and reports its timing
// to the observer. Recoverable collaborator failures never escape the step
// functions; any error returned here is terminal. roundGain is the number
// of findings the latest research round contributed; only the critique
// step reads it.
func (e *engineImpl) dispatch(ctx context.Context, lin *api.Lineage, pos string, roundGain int) (api.Delta, error) {
	e.observer.OnStepStart(ctx, lin, pos)
	start := time.Now()

	var (
		delta api.Delta
		err   error
	)
	switch pos {
	case stepClassify:
		delta, err = e.classify(ctx, lin.State)
	case stepPlan:
		delta, err = e.plan(ctx, lin.State)
	case stepResearch:
		delta, err = e.research(ctx, lin.State)
	case stepCritique:
		delta, err = e.critique(ctx, lin.State, roundGain)
	case stepWrite:
		delta, err = e.write(lin.State)
	default:
		err = api.NewFatalError(pos, errors.New("unknown step"))
	}

	e.observer.OnStepCompleted(ctx, lin, pos, err, time.Since(start))
	return delta, err
}

func (e *engineImpl) succeed(ctx context.Context, lin *api.Lineage) (*api.Lineage, error) {
	lin.State.Status = api.StatusSucceeded
	lin.IterationsUsed = lin.State.Iteration
	lin.FinishedAt = time.Now()

	e.archive(lin)
	e.observer.OnRunCompleted(ctx, lin)
	return lin, nil
}

func (e *engineImpl) fail(ctx context.Context, lin *api.Lineage, err error) (*api.Lineage, error) {
	lin.State.Status = api.StatusFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lin.State.FailReason = "cancelled: " + err.Error()
	} else if step, ok := api.IsFatalError(err); ok {
		lin.State.FailReason = fmt.Sprintf("%s: %v", step, errors.Unwrap(err))
	} else {
		lin.State.FailReason = err.Error()
	}
	lin.IterationsUsed = lin.State.Iteration
	lin.FinishedAt = time.Now()

	e.archive(lin)
	e.observer.OnRunFailed(ctx, lin, err)
	return lin, err
}

// archive records the terminal lineage. The run outcome is already
// decided, so a store failure is deliberately swallowed here; observers
// still see the terminal callbacks.
func (e *engineImpl) archive(lin *api.Lineage) {
	_ = e.history.SaveRun(api.RunRecord{
		ID:             lin.ID,
		Query:          lin.State.Query,
		Intent:         lin.State.Intent,
		Status:         lin.State.Status,
		IterationsUsed: lin.IterationsUsed,
		FindingCount:   len(lin.State.Findings),
		Report:         lin.State.Report,
		FailReason:     lin.State.FailReason,
		StartedAt:      lin.StartedAt,
		FinishedAt:     lin.FinishedAt,
	})
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (api.RunRecord, error) {
	rec, err := e.history.GetRun(id)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			return api.RunRecord{}, fmt.Errorf("run not found: %s", id)
		}
		return api.RunRecord{}, err
	}
	return rec, nil
}

func (e *engineImpl) ListRuns(ctx context.Context, filter api.RunFilter) ([]api.RunRecord, error) {
	return e.history.ListRuns(filter)
}

// callContext bounds a single collaborator call.
func (e *engineImpl) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.policy.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.policy.CallTimeout)
}
