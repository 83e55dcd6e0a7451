package deepdive

import (
	"database/sql"

	"github.com/petrijr/deepdive/pkg/api"
)

// PipelineBuilder provides a fluent API for assembling an engine:
//
//	eng, err := deepdive.NewPipeline().
//	    Classifier(classifier).
//	    Planner(planner).
//	    Searcher(searcher).
//	    Critic(critic).
//	    Renderer(report.NewRegistry()).
//	    Policy(deepdive.Policy{DefaultMaxIterations: 3}).
//	    Build()
//
//	lin, err := deepdive.Run(ctx, eng, deepdive.Request{Query: "..."})
type PipelineBuilder struct {
	collab   api.Collaborators
	policy   api.Policy
	observer api.Observer
}

// NewPipeline creates an empty pipeline builder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{}
}

// Classifier sets the intent classifier.
func (b *PipelineBuilder) Classifier(c Classifier) *PipelineBuilder {
	b.collab.Classifier = c
	return b
}

// Planner sets the sub-query planner.
func (b *PipelineBuilder) Planner(p Planner) *PipelineBuilder {
	b.collab.Planner = p
	return b
}

// Searcher sets the research searcher.
func (b *PipelineBuilder) Searcher(s Searcher) *PipelineBuilder {
	b.collab.Searcher = s
	return b
}

// Critic sets the findings critic.
func (b *PipelineBuilder) Critic(c Critic) *PipelineBuilder {
	b.collab.Critic = c
	return b
}

// Renderer sets the report renderer.
func (b *PipelineBuilder) Renderer(r Renderer) *PipelineBuilder {
	b.collab.Renderer = r
	return b
}

// Policy sets the engine policy. Zero fields fall back to defaults.
func (b *PipelineBuilder) Policy(p Policy) *PipelineBuilder {
	b.policy = p
	return b
}

// Observer sets the engine observer. Use NewCompositeObserver to attach
// more than one.
func (b *PipelineBuilder) Observer(obs Observer) *PipelineBuilder {
	b.observer = obs
	return b
}

// Build constructs an in-memory engine from the collected parts.
// It returns an error when a required collaborator is missing.
func (b *PipelineBuilder) Build() (Engine, error) {
	return NewInMemoryEngineWithObserver(b.collab, b.policy, b.observer)
}

// BuildSQLite constructs an engine that archives finished runs in the
// given SQLite database.
func (b *PipelineBuilder) BuildSQLite(db *sql.DB) (Engine, error) {
	return NewSQLiteEngineWithObserver(db, b.collab, b.policy, b.observer)
}
