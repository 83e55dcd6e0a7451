package engine

import "github.com/petrijr/deepdive/pkg/api"

// next is the router's choice after a critique round.
type next int

const (
	nextResearch next = iota
	nextWrite
)

// route is the single conditional edge in the topology, evaluated
// immediately after critique. The ceiling check comes first and is
// unconditional: termination is guaranteed structurally by the monotonic
// iteration counter, never by trusting the critique verdict.
func route(st api.State) next {
	if st.Iteration >= st.MaxIterations {
		return nextWrite
	}
	if st.Critique.Verdict == api.VerdictInsufficient && len(st.Critique.Directives) > 0 {
		return nextResearch
	}
	return nextWrite
}
