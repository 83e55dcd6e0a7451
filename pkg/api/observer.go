package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the pipeline engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay the run.
type Observer interface {
	// OnRunStart is called once per lineage, before the classify step.
	OnRunStart(ctx context.Context, lin *Lineage)

	// OnRunCompleted is called when a lineage reaches StatusSucceeded.
	OnRunCompleted(ctx context.Context, lin *Lineage)

	// OnRunFailed is called when a lineage reaches StatusFailed,
	// including cancellation.
	OnRunFailed(ctx context.Context, lin *Lineage, err error)

	// OnStepStart is called before invoking a step.
	OnStepStart(ctx context.Context, lin *Lineage, stepName string)

	// OnStepCompleted is called after a step returns, for both successes
	// and failures (err != nil).
	OnStepCompleted(ctx context.Context, lin *Lineage, stepName string, err error, duration time.Duration)

	// OnRouteDecision is called after each critique round with the
	// router's choice: loopBack is true when the run re-enters research.
	OnRouteDecision(ctx context.Context, lin *Lineage, loopBack bool)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, lin *Lineage)             {}
func (NoopObserver) OnRunCompleted(ctx context.Context, lin *Lineage)         {}
func (NoopObserver) OnRunFailed(ctx context.Context, lin *Lineage, err error) {}
func (NoopObserver) OnStepStart(ctx context.Context, lin *Lineage, stepName string) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, lin *Lineage, stepName string, err error, d time.Duration) {
}
func (NoopObserver) OnRouteDecision(ctx context.Context, lin *Lineage, loopBack bool) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, lin *Lineage) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, lin)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, lin *Lineage) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, lin)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, lin *Lineage, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, lin, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, lin *Lineage, stepName string) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, lin, stepName)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, lin *Lineage, stepName string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, lin, stepName, err, d)
	}
}

func (c *CompositeObserver) OnRouteDecision(ctx context.Context, lin *Lineage, loopBack bool) {
	for _, o := range c.observers {
		o.OnRouteDecision(ctx, lin, loopBack)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs lineage and step
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, lin *Lineage) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", lin.ID),
		slog.String("query", lin.State.Query),
		slog.Int("max_iterations", lin.State.MaxIterations),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, lin *Lineage) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("run_id", lin.ID),
		slog.String("intent", string(lin.State.Intent)),
		slog.Int("iterations_used", lin.IterationsUsed),
		slog.Int("findings", len(lin.State.Findings)),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, lin *Lineage, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run_id", lin.ID),
		slog.String("reason", lin.State.FailReason),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, lin *Lineage, stepName string) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("run_id", lin.ID),
		slog.String("step", stepName),
		slog.Int("iteration", lin.State.Iteration),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, lin *Lineage, stepName string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("run_id", lin.ID),
		slog.String("step", stepName),
		slog.Int("iteration", lin.State.Iteration),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRouteDecision(ctx context.Context, lin *Lineage, loopBack bool) {
	o.Logger.InfoContext(ctx, "route_decision",
		slog.String("run_id", lin.ID),
		slog.Int("iteration", lin.State.Iteration),
		slog.String("verdict", string(lin.State.Critique.Verdict)),
		slog.Bool("loop_back", loopBack),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsSucceeded     atomic.Int64
	runsFailed        atomic.Int64
	loopBacks         atomic.Int64
	stepsCompleted    atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64
	RunsInFlight  int64
	LoopBacks     int64

	StepsCompleted  int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, lin *Lineage) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, lin *Lineage) {
	m.runsSucceeded.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, lin *Lineage, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnRouteDecision(ctx context.Context, lin *Lineage, loopBack bool) {
	if loopBack {
		m.loopBacks.Add(1)
	}
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, lin *Lineage, stepName string, err error, d time.Duration) {
	// Only count successful steps for average duration.
	if err == nil {
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	succeeded := m.runsSucceeded.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsSucceeded:   succeeded,
		RunsFailed:      failed,
		RunsInFlight:    started - succeeded - failed,
		LoopBacks:       m.loopBacks.Load(),
		StepsCompleted:  steps,
		AvgStepDuration: avg,
	}
}
