package runner

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

// fakeEngine records the requests it runs and signals completion.
type fakeEngine struct {
	mu   sync.Mutex
	runs []api.Request
	err  error
	done chan string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{done: make(chan string, 16)}
}

func (e *fakeEngine) Run(ctx context.Context, req api.Request) (*api.Lineage, error) {
	e.mu.Lock()
	e.runs = append(e.runs, req)
	err := e.err
	e.mu.Unlock()

	e.done <- req.RunID
	if err != nil {
		return &api.Lineage{ID: req.RunID, State: api.State{Status: api.StatusFailed}}, err
	}
	return &api.Lineage{ID: req.RunID, State: api.State{Status: api.StatusSucceeded}}, nil
}

func (e *fakeEngine) GetRun(ctx context.Context, id string) (api.RunRecord, error) {
	return api.RunRecord{ID: id}, nil
}

func (e *fakeEngine) ListRuns(ctx context.Context, filter api.RunFilter) ([]api.RunRecord, error) {
	return nil, nil
}

func (e *fakeEngine) ranQueries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.runs))
	for i, r := range e.runs {
		out[i] = r.Query
	}
	return out
}

func TestRunner_SubmitAssignsRunID(t *testing.T) {
	eng := newFakeEngine()
	r := New(eng)

	id, err := r.Submit(context.Background(), api.Request{Query: "q"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// A caller-chosen ID is kept as-is.
	id2, err := r.Submit(context.Background(), api.Request{Query: "q2", RunID: "mine"})
	require.NoError(t, err)
	require.Equal(t, "mine", id2)
	require.Equal(t, 2, r.Pending())
}

func TestRunner_ProcessOne(t *testing.T) {
	eng := newFakeEngine()
	r := New(eng)

	id, err := r.Submit(context.Background(), api.Request{Query: "q"})
	require.NoError(t, err)

	processed, err := r.ProcessOne(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []string{"q"}, eng.ranQueries())
	require.Equal(t, id, <-eng.done)
}

func TestRunner_ProcessOnePropagatesRunError(t *testing.T) {
	eng := newFakeEngine()
	eng.err = errors.New("run exploded")
	r := New(eng)

	_, err := r.Submit(context.Background(), api.Request{Query: "q"})
	require.NoError(t, err)

	processed, err := r.ProcessOne(context.Background())
	require.True(t, processed)
	require.Error(t, err)
}

func TestRunner_StartDrainsInOrder(t *testing.T) {
	eng := newFakeEngine()
	r := New(eng)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		_, err := r.Submit(ctx, api.Request{Query: q})
		require.NoError(t, err)
	}

	require.NoError(t, r.Start(ctx, 1))
	defer r.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-eng.done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for queued runs")
		}
	}
	// A single worker preserves submission order.
	require.Equal(t, []string{"a", "b", "c"}, eng.ranQueries())
}

func TestRunner_StartTwiceFails(t *testing.T) {
	r := New(newFakeEngine())
	ctx := context.Background()

	require.NoError(t, r.Start(ctx, 1))
	require.Error(t, r.Start(ctx, 1))
	r.Stop()

	// After Stop the runner can be started again.
	require.NoError(t, r.Start(ctx, 1))
	r.Stop()
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	r := New(newFakeEngine())
	require.NoError(t, r.Start(context.Background(), 2))
	r.Stop()
	r.Stop()
}

func TestRunner_KeepsDrainingAfterRunError(t *testing.T) {
	eng := newFakeEngine()
	eng.err = errors.New("every run fails")
	r := New(eng)
	ctx := context.Background()

	_, err := r.Submit(ctx, api.Request{Query: "a"})
	require.NoError(t, err)
	_, err = r.Submit(ctx, api.Request{Query: "b"})
	require.NoError(t, err)

	require.NoError(t, r.Start(ctx, 1))
	defer r.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-eng.done:
		case <-time.After(time.Second):
			t.Fatal("worker stopped draining after a failed run")
		}
	}
}
