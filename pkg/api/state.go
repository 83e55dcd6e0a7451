package api

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a research lineage.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Intent is the classified purpose of a research query. It selects the
// report template and may steer planning.
type Intent string

const (
	IntentComparison   Intent = "comparison"
	IntentDeepDive     Intent = "deep_dive"
	IntentSurvey       Intent = "survey"
	IntentTutorial     Intent = "tutorial"
	IntentUnclassified Intent = "unclassified"
)

// ParseIntent maps a classifier label onto the closed Intent set.
// Unknown labels return IntentUnclassified and ok=false.
func ParseIntent(label string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentComparison:
		return IntentComparison, true
	case IntentDeepDive:
		return IntentDeepDive, true
	case IntentSurvey:
		return IntentSurvey, true
	case IntentTutorial:
		return IntentTutorial, true
	default:
		return IntentUnclassified, false
	}
}

// Verdict is the closed two-valued outcome of a critique round.
type Verdict string

const (
	VerdictSufficient   Verdict = "SUFFICIENT"
	VerdictInsufficient Verdict = "INSUFFICIENT"
)

// Finding is a single research item: what was asked, what was extracted,
// and where it came from. Findings are append-only; their order is the
// causal record of what was learned when, and report rendering relies on it
// for stable citation ordering.
type Finding struct {
	SubQuery string
	Title    string
	URL      string
	Content  string
}

// Critique is the latest critic judgement. Only the most recent critique
// drives routing; earlier ones survive implicitly through their effect on
// the plan and findings.
type Critique struct {
	Verdict    Verdict
	Directives []string
	Rationale  string
}

// State is the shared record threaded through every pipeline step.
// It is versioned by replacement: steps receive a copy and return a Delta,
// they never mutate a State another party can see.
type State struct {
	Query         string
	Intent        Intent
	Plan          []string
	Findings      []Finding
	Critique      Critique
	Iteration     int
	MaxIterations int
	Report        string
	Status        Status
	FailReason    string
}

// Delta is the result of one step: the fields it wants changed.
// Nil / zero fields leave the corresponding State field untouched.
type Delta struct {
	Intent *Intent

	// Plan, when non-nil, replaces the current plan.
	Plan []string

	// AppendFindings is appended to the findings sequence; existing
	// entries are never truncated or reordered.
	AppendFindings []Finding

	Critique *Critique

	// AdvanceIteration bumps the iteration counter by exactly one.
	// Only the critique step sets this.
	AdvanceIteration bool

	Report *string
}

// Apply merges a Delta into a State and returns the successor State.
// The receiver is not modified; slices are copied so the two versions
// never alias.
func (st State) Apply(d Delta) State {
	next := st
	if d.Intent != nil {
		next.Intent = *d.Intent
	}
	if d.Plan != nil {
		next.Plan = append([]string(nil), d.Plan...)
	}
	if len(d.AppendFindings) > 0 {
		merged := make([]Finding, 0, len(st.Findings)+len(d.AppendFindings))
		merged = append(merged, st.Findings...)
		merged = append(merged, d.AppendFindings...)
		next.Findings = merged
	}
	if d.Critique != nil {
		next.Critique = *d.Critique
	}
	if d.AdvanceIteration {
		next.Iteration++
	}
	if d.Report != nil {
		next.Report = *d.Report
	}
	return next
}

// HasResearched reports whether a sub-query already produced at least one
// finding in this lineage. The research step uses it to avoid re-fetching
// plan entries on loop-back rounds.
func (st State) HasResearched(subQuery string) bool {
	for _, f := range st.Findings {
		if f.SubQuery == subQuery {
			return true
		}
	}
	return false
}

// Request describes one research run.
type Request struct {
	Query string

	// MaxIterations is the hard ceiling on critique-driven loop-backs.
	// Zero means the pipeline runs a single research round and then
	// writes unconditionally. Negative values select the engine default.
	MaxIterations int

	// RunID, when non-empty, becomes the lineage ID. Async callers set it
	// at submit time so the run can be looked up before it finishes.
	// When empty the engine assigns one.
	RunID string
}

// Lineage is one State's evolution from creation to terminal status.
type Lineage struct {
	ID    string
	State State

	// IterationsUsed is the number of completed research-critique rounds.
	IterationsUsed int

	StartedAt  time.Time
	FinishedAt time.Time
}
