package research

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/petrijr/deepdive/pkg/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// tableSearcher answers from a fixed table and counts calls per sub-query.
type tableSearcher struct {
	mu      sync.Mutex
	results map[string][]api.SearchResult
	errs    map[string]error
	calls   map[string]int
	delay   map[string]time.Duration
}

func (s *tableSearcher) Search(ctx context.Context, subQuery string) ([]api.SearchResult, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[subQuery]++
	delay := s.delay[subQuery]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := s.errs[subQuery]; err != nil {
		return nil, err
	}
	return s.results[subQuery], nil
}

func (s *tableSearcher) callCount(subQuery string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[subQuery]
}

func result(title string) []api.SearchResult {
	return []api.SearchResult{{Title: title, URL: "https://example.com/" + title, Content: "c"}}
}

func TestGather_EmptyPlan(t *testing.T) {
	round, err := Gather(context.Background(), &tableSearcher{}, nil, Options{})
	require.NoError(t, err)
	require.Zero(t, round.Attempted)
	require.Empty(t, round.Findings)
	require.False(t, round.AllFailed())
}

// Findings come back in plan order even when completion order differs.
func TestGather_PlanOrderMerge(t *testing.T) {
	searcher := &tableSearcher{
		results: map[string][]api.SearchResult{
			"slow": result("slow-hit"),
			"fast": result("fast-hit"),
		},
		delay: map[string]time.Duration{"slow": 30 * time.Millisecond},
	}

	round, err := Gather(context.Background(), searcher, []string{"slow", "fast"}, Options{})
	require.NoError(t, err)
	require.Len(t, round.Findings, 2)
	require.Equal(t, "slow", round.Findings[0].SubQuery)
	require.Equal(t, "fast", round.Findings[1].SubQuery)
}

// One failing sub-query never aborts its siblings.
func TestGather_PartialFailure(t *testing.T) {
	searcher := &tableSearcher{
		results: map[string][]api.SearchResult{"ok": result("hit")},
		errs:    map[string]error{"bad": errors.New("backend down")},
	}

	round, err := Gather(context.Background(), searcher, []string{"bad", "ok"}, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, round.Attempted)
	require.Equal(t, 1, round.Failed)
	require.False(t, round.AllFailed())
	require.Len(t, round.Findings, 1)
	require.Equal(t, "ok", round.Findings[0].SubQuery)
}

func TestGather_AllFailed(t *testing.T) {
	searcher := &tableSearcher{
		errs: map[string]error{
			"a": errors.New("down"),
			"b": errors.New("down"),
		},
	}

	round, err := Gather(context.Background(), searcher, []string{"a", "b"}, Options{})
	require.NoError(t, err)
	require.True(t, round.AllFailed())
	require.Empty(t, round.Findings)
}

// Each sub-query is retried independently up to MaxAttempts.
func TestGather_RetriesPerSubQuery(t *testing.T) {
	searcher := &tableSearcher{
		results: map[string][]api.SearchResult{"ok": result("hit")},
		errs:    map[string]error{"flaky": errors.New("down")},
	}

	round, err := Gather(context.Background(), searcher, []string{"flaky", "ok"}, Options{
		Retry: api.RetryPolicy{MaxAttempts: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 1, round.Failed)
	require.Equal(t, 3, searcher.callCount("flaky"))
	require.Equal(t, 1, searcher.callCount("ok"))
}

func TestGather_MaxResultsPerQuery(t *testing.T) {
	searcher := &tableSearcher{
		results: map[string][]api.SearchResult{
			"many": {
				{Title: "one", URL: "u1"},
				{Title: "two", URL: "u2"},
				{Title: "three", URL: "u3"},
			},
		},
	}

	round, err := Gather(context.Background(), searcher, []string{"many"}, Options{
		MaxResultsPerQuery: 2,
	})
	require.NoError(t, err)
	require.Len(t, round.Findings, 2)
	require.Equal(t, "one", round.Findings[0].Title)
	require.Equal(t, "two", round.Findings[1].Title)
}

// Cancellation is the only error Gather surfaces.
func TestGather_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &tableSearcher{
		results: map[string][]api.SearchResult{"slow": result("hit")},
		delay:   map[string]time.Duration{"slow": time.Second},
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Gather(ctx, searcher, []string{"slow"}, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestGather_ConcurrencyLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	searcher := searchFunc(func(ctx context.Context, sq string) ([]api.SearchResult, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return result(sq), nil
	})

	round, err := Gather(context.Background(), searcher, []string{"a", "b", "c", "d"}, Options{
		Concurrency: 2,
	})
	require.NoError(t, err)
	require.Len(t, round.Findings, 4)

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, peak, 2)
}

type searchFunc func(ctx context.Context, subQuery string) ([]api.SearchResult, error)

func (f searchFunc) Search(ctx context.Context, subQuery string) ([]api.SearchResult, error) {
	return f(ctx, subQuery)
}
