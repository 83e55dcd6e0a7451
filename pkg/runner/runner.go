// Package runner provides the background worker that drives queued
// research requests through an engine.
//
// A Runner owns a queue and an engine. Callers submit requests and get a
// run ID back immediately; worker goroutines drain the queue and execute
// each request end to end. Because the engine serializes runs internally,
// a single worker is the usual configuration, but multiple workers are
// safe and simply contend for the engine.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/deepdive/internal/queue"
	"github.com/petrijr/deepdive/pkg/api"
)

// Runner bundles an engine and a request queue with a worker loop.
type Runner struct {
	engine api.Engine
	queue  queue.Queue
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a Runner over the given engine with an in-memory queue.
func New(engine api.Engine) *Runner {
	return NewWithQueue(engine, queue.NewInMemoryQueue(0))
}

// NewWithQueue creates a Runner over the given engine and queue.
func NewWithQueue(engine api.Engine, q queue.Queue) *Runner {
	return &Runner{
		engine: engine,
		queue:  q,
		logger: slog.Default(),
	}
}

// SetLogger replaces the logger used for worker loop errors. Must be
// called before Start.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Submit enqueues a research request and returns its run ID. The request
// is executed later by a worker; use Engine.GetRun with the returned ID
// to check on it.
func (r *Runner) Submit(ctx context.Context, req api.Request) (string, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	t := queue.Task{
		ID:         req.RunID,
		Request:    req,
		EnqueuedAt: time.Now(),
	}
	if err := r.queue.Enqueue(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// Start launches 'concurrency' worker goroutines that continuously call
// ProcessOne until Stop is called or ctx is cancelled.
//
// Calling Start again without an intervening Stop returns an error.
func (r *Runner) Start(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("runner already started")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.ProcessOne(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// A failed run is an outcome, not a reason to stop
					// draining the queue.
					r.logger.Warn("run failed", "error", err)
					continue
				}
				if !processed {
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels the worker goroutines started by Start and waits for them
// to exit. Stop is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Pending returns the number of submitted requests not yet picked up.
func (r *Runner) Pending() int {
	return r.queue.Len()
}

// ProcessOne pulls a single request from the queue and runs it to
// completion. Returns (processed, error):
//   - processed == false: no request was obtained (ctx cancelled while
//     waiting); err carries the context error.
//   - processed == true: a request ran; err is the run error, if any.
func (r *Runner) ProcessOne(ctx context.Context) (bool, error) {
	task, err := r.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	_, runErr := r.engine.Run(ctx, task.Request)
	return true, runErr
}
