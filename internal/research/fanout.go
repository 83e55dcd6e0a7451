// Package research implements the fan-out half of the research step:
// independent sub-queries dispatched concurrently against a Searcher,
// with per-call retry, and results merged back in plan order so that a
// run is reproducible given the same plan and search responses.
package research

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/deepdive/pkg/api"
)

// Options bounds one gathering round.
type Options struct {
	// Retry is applied to each sub-query independently.
	Retry api.RetryPolicy

	// CallTimeout bounds a single search call (one attempt).
	CallTimeout time.Duration

	// MaxResultsPerQuery caps how many findings one sub-query contributes.
	MaxResultsPerQuery int

	// Concurrency limits in-flight search calls. <= 0 means one goroutine
	// per sub-query.
	Concurrency int
}

// Round is the outcome of one gathering round.
type Round struct {
	// Findings holds the new findings in plan order, not completion order.
	Findings []api.Finding

	// Attempted is the number of sub-queries dispatched.
	Attempted int

	// Failed is the number of sub-queries whose every attempt failed.
	Failed int
}

// AllFailed reports whether every dispatched sub-query failed.
func (r Round) AllFailed() bool {
	return r.Attempted > 0 && r.Failed == r.Attempted
}

// Gather runs each sub-query against the searcher. A failing sub-query
// never aborts its siblings: partial success is expected and normal. The
// only error Gather returns is context cancellation.
func Gather(ctx context.Context, searcher api.Searcher, subQueries []string, opts Options) (Round, error) {
	round := Round{Attempted: len(subQueries)}
	if len(subQueries) == 0 {
		return round, nil
	}

	// One result slot per sub-query keeps the merge deterministic:
	// slot order is plan order regardless of completion order.
	perQuery := make([][]api.Finding, len(subQueries))
	failed := make([]bool, len(subQueries))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, sq := range subQueries {
		g.Go(func() error {
			results, err := searchWithRetry(gctx, searcher, sq, opts)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed[i] = true
				return nil
			}
			if opts.MaxResultsPerQuery > 0 && len(results) > opts.MaxResultsPerQuery {
				results = results[:opts.MaxResultsPerQuery]
			}
			findings := make([]api.Finding, 0, len(results))
			for _, res := range results {
				findings = append(findings, api.Finding{
					SubQuery: sq,
					Title:    res.Title,
					URL:      res.URL,
					Content:  res.Content,
				})
			}
			perQuery[i] = findings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Round{}, err
	}

	for i := range perQuery {
		if failed[i] {
			round.Failed++
			continue
		}
		round.Findings = append(round.Findings, perQuery[i]...)
	}
	return round, nil
}

// searchWithRetry performs one sub-query with bounded retries and backoff.
// Retries are local here; the engine only ever sees the aggregate round.
func searchWithRetry(ctx context.Context, searcher api.Searcher, subQuery string, opts Options) ([]api.SearchResult, error) {
	maxAttempts := opts.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	backoff := opts.Retry.InitialBackoff
	multiplier := opts.Retry.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := searchOnce(ctx, searcher, subQuery, opts.CallTimeout)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if backoff > 0 {
			delay := backoff
			if opts.Retry.MaxBackoff > 0 && delay > opts.Retry.MaxBackoff {
				delay = opts.Retry.MaxBackoff
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			next := time.Duration(float64(backoff) * multiplier)
			if opts.Retry.MaxBackoff > 0 && next > opts.Retry.MaxBackoff {
				backoff = opts.Retry.MaxBackoff
			} else {
				backoff = next
			}
		}
	}
	return nil, lastErr
}

func searchOnce(ctx context.Context, searcher api.Searcher, subQuery string, timeout time.Duration) ([]api.SearchResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return searcher.Search(ctx, subQuery)
}
