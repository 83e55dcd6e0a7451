package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/petrijr/deepdive/internal/research"
	"github.com/petrijr/deepdive/pkg/api"
)

// classify assigns an intent to the query. A classification failure is
// recoverable: the run degrades to the configured default intent rather
// than aborting, trading precision for availability. With no default
// configured the intent stays unclassified and the plan step decides.
func (e *engineImpl) classify(ctx context.Context, st api.State) (api.Delta, error) {
	cctx, cancel := e.callContext(ctx)
	defer cancel()

	intent, err := e.collab.Classifier.Classify(cctx, st.Query)
	if err != nil || !validIntent(intent) {
		intent = e.policy.DefaultIntent
		if !validIntent(intent) {
			intent = api.IntentUnclassified
		}
	}
	return api.Delta{Intent: &intent}, nil
}

func validIntent(in api.Intent) bool {
	switch in {
	case api.IntentComparison, api.IntentDeepDive, api.IntentSurvey, api.IntentTutorial:
		return true
	default:
		return false
	}
}

// plan decomposes the query into sub-queries. A failed or empty plan
// degrades to a single-topic pass over the original query. Planning an
// unclassified query with no default intent configured is the one fatal
// case here.
func (e *engineImpl) plan(ctx context.Context, st api.State) (api.Delta, error) {
	if st.Intent == api.IntentUnclassified {
		return api.Delta{}, api.NewFatalError(stepPlan,
			errors.New("query intent is unclassified and no default intent is configured"))
	}

	cctx, cancel := e.callContext(ctx)
	defer cancel()

	subs, err := e.collab.Planner.Plan(cctx, st.Query, st.Intent)
	plan := cleanPlan(subs, e.policy.MaxSubQueries)
	if err != nil || len(plan) == 0 {
		plan = []string{st.Query}
	}
	return api.Delta{Plan: plan}, nil
}

// cleanPlan trims entries, drops blanks and duplicates, and caps the plan
// length while preserving order.
func cleanPlan(subs []string, max int) []string {
	seen := make(map[string]struct{}, len(subs))
	var plan []string
	for _, s := range subs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		plan = append(plan, s)
		if max > 0 && len(plan) == max {
			break
		}
	}
	return plan
}

// research fans the not-yet-researched plan entries out to the searcher.
// Partial failure is normal; even total failure returns an empty delta and
// lets the critique step decide what that means. The only error surfaced
// here is cancellation.
func (e *engineImpl) research(ctx context.Context, st api.State) (api.Delta, error) {
	var pending []string
	for _, sq := range st.Plan {
		if !st.HasResearched(sq) {
			pending = append(pending, sq)
		}
	}

	round, err := research.Gather(ctx, e.collab.Searcher, pending, research.Options{
		Retry:              e.policy.SearchRetry,
		CallTimeout:        e.policy.CallTimeout,
		MaxResultsPerQuery: e.policy.MaxResultsPerQuery,
	})
	if err != nil {
		return api.Delta{}, err
	}
	return api.Delta{AppendFindings: round.Findings}, nil
}

// critique judges the findings and advances the iteration counter by
// exactly one. An unreachable critic defaults to a sufficient verdict:
// terminating beats looping indefinitely on a broken critic. An
// insufficient verdict without directives is a contract violation and is
// coerced to sufficient to guarantee forward progress.
func (e *engineImpl) critique(ctx context.Context, st api.State, roundGain int) (api.Delta, error) {
	if len(st.Findings) == 0 {
		// Only possible after the first round: findings are append-only.
		if e.policy.EmptyFindings == api.EmptyFindingsFail {
			return api.Delta{}, api.NewFatalError(stepCritique, api.ErrNoFindings)
		}
		c := api.Critique{
			Verdict:   api.VerdictSufficient,
			Rationale: "no findings were gathered; writing a caveated report",
		}
		return api.Delta{Critique: &c, AdvanceIteration: true}, nil
	}

	if roundGain == 0 {
		// The last round learned nothing new, so another round over the
		// same sources will not help either.
		c := api.Critique{
			Verdict:   api.VerdictSufficient,
			Rationale: "research round produced no new findings; further iteration will not help",
		}
		return api.Delta{Critique: &c, AdvanceIteration: true}, nil
	}

	cctx, cancel := e.callContext(ctx)
	defer cancel()

	c, err := e.collab.Critic.Critique(cctx, st.Findings, st.Query, st.Intent)
	if err != nil {
		c = api.Critique{
			Verdict:   api.VerdictSufficient,
			Rationale: "critic unavailable: " + err.Error(),
		}
	}

	switch c.Verdict {
	case api.VerdictInsufficient:
		if len(c.Directives) == 0 {
			c.Verdict = api.VerdictSufficient
			c.Rationale = strings.TrimSpace("insufficient verdict carried no directives; coerced to sufficient. " + c.Rationale)
		}
	case api.VerdictSufficient:
		// Valid as-is.
	default:
		c.Verdict = api.VerdictSufficient
	}

	delta := api.Delta{Critique: &c, AdvanceIteration: true}
	if c.Verdict == api.VerdictInsufficient {
		// The amended plan is the delta carried into the next research
		// round; already-researched entries are skipped there.
		delta.Plan = mergeDirectives(st.Plan, c.Directives)
	}
	return delta, nil
}

// mergeDirectives appends critique directives to the plan, dropping blanks
// and entries already planned, preserving order.
func mergeDirectives(plan, directives []string) []string {
	merged := append([]string(nil), plan...)
	seen := make(map[string]struct{}, len(plan))
	for _, p := range plan {
		seen[p] = struct{}{}
	}
	for _, d := range directives {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		merged = append(merged, d)
	}
	return merged
}

// write renders the terminal report. Template fallback for unknown intents
// happens inside the renderer; an error surfacing here is unrecoverable.
func (e *engineImpl) write(st api.State) (api.Delta, error) {
	if e.collab.Renderer == nil {
		return api.Delta{}, api.NewFatalError(stepWrite, api.ErrNoRenderer)
	}

	report, err := e.collab.Renderer.Render(st.Intent, st)
	if err != nil {
		return api.Delta{}, api.NewFatalError(stepWrite, err)
	}
	if report == "" {
		return api.Delta{}, api.NewFatalError(stepWrite, errors.New("renderer produced an empty report"))
	}
	return api.Delta{Report: &report}, nil
}
