package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/genie/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[model.Task](WithCapacity(2), WithName("test_basic"))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if _, ok := q.TryDequeue(ctx); ok {
		t.Error("expected empty dequeue to report false")
	}

	if err := q.Enqueue(ctx, model.Task{ID: "task1"}); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if err := q.Enqueue(ctx, model.Task{ID: "task2"}); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}

	got, ok := q.TryDequeue(ctx)
	if !ok || got.ID != "task1" {
		t.Errorf("expected task1 first, got %q (ok=%v)", got.ID, ok)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(2), WithName("test_capacity"))
	ctx := context.Background()

	_ = q.Enqueue(ctx, 1)
	_ = q.Enqueue(ctx, 2)

	if !q.Full(ctx) {
		t.Error("expected queue to report full")
	}
	if err := q.Enqueue(ctx, 3); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_ConcurrentProducersNeverExceedCapacity(t *testing.T) {
	const capacity = 10
	q := NewInMemoryQueue[int](WithCapacity(capacity), WithName("test_concurrent"))
	ctx := context.Background()

	var accepted, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := q.Enqueue(ctx, v); err != nil {
				rejected.Add(1)
				return
			}
			accepted.Add(1)
		}(i)
	}
	wg.Wait()

	if accepted.Load() != capacity {
		t.Errorf("expected %d accepted, got %d", capacity, accepted.Load())
	}
	if rejected.Load() != 40 {
		t.Errorf("expected 40 rejected, got %d", rejected.Load())
	}
	if q.Len(ctx) > capacity {
		t.Errorf("queue exceeded capacity: %d", q.Len(ctx))
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(4), WithName("test_close"))
	ctx := context.Background()

	_ = q.Enqueue(ctx, "before")
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected closed queue")
	}
	if err := q.Enqueue(ctx, "after"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if v, ok := q.TryDequeue(ctx); !ok || v != "before" {
		t.Errorf("expected queued item to survive close, got %q", v)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1), WithName("test_ctx"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkInMemoryQueue(b *testing.B) {
	q := NewInMemoryQueue[int](WithCapacity(1024), WithName("bench"))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			b.Fatal(fmt.Sprintf("enqueue: %v", err))
		}
		q.TryDequeue(ctx)
	}
}
