// Package synth produces synthetic tasks and feeds them to the pending-task queue.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/metrics"
)

// Generator creates one task per call.
type Generator interface {
	Name() string
	Generate(ctx context.Context) (model.Task, error)
}

// Pending is the queue synthetic tasks are handed to.
type Pending interface {
	Enqueue(ctx context.Context, t model.Task) error
	Full(ctx context.Context) bool
}

type weighted struct {
	gen    Generator
	weight float64
}

// Synthesizer picks a registered generator by weight and enqueues its task.
type Synthesizer struct {
	mu      sync.Mutex
	gens    []weighted
	total   float64
	rng     *rand.Rand
	pending Pending
	logger  logger.Logger
}

// New creates a Synthesizer feeding pending.
func New(pending Pending, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		pending: pending,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // generator choice is not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("synth")
	}
	return s
}

// Register adds g with a positive selection weight.
func (s *Synthesizer) Register(g Generator, weight float64) error {
	if g == nil {
		return fmt.Errorf("%w: nil generator", ErrInvalidWeight)
	}
	if weight <= 0 {
		return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeight, g.Name(), weight)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens = append(s.gens, weighted{gen: g, weight: weight})
	s.total += weight
	return nil
}

// Synthesize generates one task and enqueues it. It returns false without
// generating anything when the pending queue is full.
func (s *Synthesizer) Synthesize(ctx context.Context) (model.Task, bool, error) {
	if s.pending.Full(ctx) {
		metrics.RecordTaskRejected()
		return model.Task{}, false, nil
	}

	g, err := s.pick()
	if err != nil {
		return model.Task{}, false, err
	}

	task, err := g.Generate(ctx)
	if err != nil {
		return model.Task{}, false, fmt.Errorf("generate with %s: %w", g.Name(), err)
	}

	if err := s.pending.Enqueue(ctx, task); err != nil {
		metrics.RecordTaskRejected()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Task{}, false, err
		}
		s.logger.Debug(ctx, "synthetic task rejected",
			logger.String("task_id", task.ID),
			logger.Error(err),
		)
		return task, false, nil
	}

	metrics.RecordTaskSynthesized()
	s.logger.Debug(ctx, "synthetic task queued",
		logger.String("task_id", task.ID),
		logger.String("generator", g.Name()),
	)
	return task, true, nil
}

func (s *Synthesizer) pick() (Generator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.gens) == 0 {
		return nil, ErrNoGenerators
	}
	r := s.rng.Float64() * s.total
	for _, w := range s.gens {
		if r < w.weight {
			return w.gen, nil
		}
		r -= w.weight
	}
	return s.gens[len(s.gens)-1].gen, nil
}
