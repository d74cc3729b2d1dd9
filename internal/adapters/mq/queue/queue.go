// Package queue provides the bounded in-memory queues that hand tasks and
// rounds between pipeline loops.
//
// Producers are never blocked: an enqueue against a full queue is rejected
// and the caller decides what to do with the item.
package queue

import (
	"context"
	"sync"

	"github.com/okian/genie/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10
	defaultQueueName     = "default"
)

// Queue provides non-blocking enqueue and dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds v to the queue. Returns ErrFull when the queue holds
	// Capacity items and ErrClosed after Close.
	Enqueue(ctx context.Context, v T) error

	// TryDequeue pops the oldest item without blocking.
	TryDequeue(ctx context.Context) (T, bool)

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Capacity returns the configured bound.
	Capacity() int

	// Close rejects further enqueues. Items already queued can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel sized to its capacity.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := settings{capacity: defaultQueueCapacity, name: defaultQueueName}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
		name:     cfg.name,
	}

	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)

	return q
}

// Enqueue adds v to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueReject(q.name, "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueReject(q.name, "context_cancelled")
		return err
	}

	// The channel buffer equals capacity, so a failed send means full.
	select {
	case q.items <- v:
		metrics.RecordQueueEnqueue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.items))
		return nil
	default:
		metrics.RecordQueueReject(q.name, "full")
		return ErrFull
	}
}

// TryDequeue pops the oldest item without blocking.
func (q *InMemoryQueue[T]) TryDequeue(_ context.Context) (T, bool) {
	select {
	case v := <-q.items:
		metrics.RecordQueueDequeue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.items))
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(q.name, size)
	return size
}

// Capacity returns the configured bound.
func (q *InMemoryQueue[T]) Capacity() int { return q.capacity }

// Full reports whether an enqueue would currently be rejected.
func (q *InMemoryQueue[T]) Full(ctx context.Context) bool {
	return q.Len(ctx) >= q.capacity
}

// Close rejects further enqueues.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
