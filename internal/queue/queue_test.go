package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petrijr/deepdive/pkg/api"
)

func TestInMemoryQueue_FIFO(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewInMemoryQueue(4)

	for _, id := range []string{"t1", "t2", "t3"} {
		err := q.Enqueue(ctx, Task{ID: id, Request: api.Request{Query: id}, EnqueuedAt: time.Now()})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	for _, want := range []string{"t1", "t2", "t3"} {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if task.ID != want {
			t.Fatalf("Dequeue returned %q, want %q", task.ID, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d after draining, want 0", q.Len())
	}
}

func TestInMemoryQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewInMemoryQueue(1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Enqueue(ctx, Task{ID: "late"})
	}()

	task, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if task.ID != "late" {
		t.Fatalf("Dequeue returned %q, want %q", task.ID, "late")
	}
}

func TestInMemoryQueue_DequeueCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemoryQueue(1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_EnqueueCancellationWhenFull(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(1)
	if err := q.Enqueue(context.Background(), Task{ID: "fill"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, Task{ID: "overflow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestNewInMemoryQueue_DefaultCapacity(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(0)
	ctx := context.Background()
	// The default capacity comfortably holds a burst without blocking.
	for i := 0; i < 64; i++ {
		if err := q.Enqueue(ctx, Task{ID: "t"}); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}
}
