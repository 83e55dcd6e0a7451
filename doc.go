// Package deepdive provides a self-correcting research pipeline for Go.
//
// DeepDive turns a single natural-language query into a structured Markdown
// research report. It runs a fixed sequence of steps over a shared state
// record, with one feedback loop that lets the pipeline critique its own
// findings and go back for more before committing to a report. It runs fully
// in Go and integrates cleanly into existing services.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. Collaborators
//  3. State and Delta
//  4. Runner
//
// These components form a complete research system with bounded iteration,
// deterministic result assembly, and a clear mental model.
//
// # Engine
//
// The Engine executes one research request end to end through five steps:
//
//   - classify: label the query with an intent
//   - plan: decompose the query into sub-queries
//   - research: fetch findings for each pending sub-query concurrently
//   - critique: judge whether the findings suffice
//   - write: render the findings into a Markdown report
//
// After critique the engine either loops back to research with new
// directives or proceeds to write. A hard iteration ceiling bounds the
// loop, so every run terminates.
//
// Finished runs are archived to a history store:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//
// # Collaborators
//
// The engine owns control flow but delegates all judgment to the
// Collaborators interfaces: Classifier, Planner, Searcher, Critic, and
// Renderer. The internal/llm and internal/webtool packages provide
// production implementations backed by a text-generation model and a web
// search API; tests substitute stubs.
//
// # State and Delta
//
// Each run evolves a single State record. Steps never mutate State
// directly; they return a Delta that the engine applies, which keeps
// every transition inspectable and keeps findings append-only.
//
// # Runner
//
// Runner (pkg/runner) adds an asynchronous front door: submit a request,
// get a run ID back, and let a background worker drain the queue one
// request at a time. Use Engine.GetRun with the ID to fetch the outcome.
//
// # Getting Started
//
// Assemble an engine with the fluent builder:
//
//	eng, err := deepdive.NewPipeline().
//	    Classifier(classifier).
//	    Planner(planner).
//	    Searcher(searcher).
//	    Critic(critic).
//	    Renderer(report.NewRegistry()).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lin, err := deepdive.Run(ctx, eng, deepdive.Request{
//	    Query:         "Compare Raft and Paxos for metadata services",
//	    MaxIterations: 3,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(lin.State.Report)
//
// See the cmd/deepdive package for a complete command-line front end.
package deepdive
