// Package worker runs the long-lived pipeline loops.
//
// A loop repeatedly calls its step. The step performs at most one unit of
// work and returns how long to sleep before the next iteration. Panics and
// errors are contained: the loop logs them, backs off and keeps running.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/metrics"
)

// Default loop configuration constants.
const (
	defaultErrorBackoff = 5 * time.Second
	defaultMaxSleep     = time.Hour
	poolShutdownTimeout = 30 * time.Second
)

// Step performs one iteration and returns the delay before the next.
type Step func(ctx context.Context) (time.Duration, error)

// Worker is a cancellable background routine.
type Worker interface {
	// Run starts the loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for the current iteration.
	Shutdown(ctx context.Context) error
}

// Loop implements Worker around a Step.
type Loop struct {
	name         string
	step         Step
	errorBackoff time.Duration
	maxSleep     time.Duration
	limiter      *rate.Limiter

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewLoop creates a loop for step with configuration options.
func NewLoop(name string, step Step, opts ...Option) *Loop {
	l := &Loop{
		name:         name,
		step:         step,
		errorBackoff: defaultErrorBackoff,
		maxSleep:     defaultMaxSleep,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = logger.Get().Named("loop")
	}

	return l
}

// Name returns the loop name.
func (l *Loop) Name() string { return l.name }

// Run starts the loop.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		default:
		}

		if l.limiter != nil {
			r := l.limiter.Reserve()
			if !r.OK() {
				return
			}
			if !l.sleep(ctx, r.Delay()) {
				r.Cancel()
				return
			}
		}

		delay, err := l.iterate(ctx)
		metrics.RecordLoopIteration(l.name)
		if err != nil {
			metrics.RecordLoopError(l.name)
			metrics.RecordErrorByComponent(l.name, "iteration")
			l.logger.Error(ctx, "loop iteration failed",
				logger.String("loop", l.name),
				logger.Error(err),
			)
			if delay < l.errorBackoff {
				delay = l.errorBackoff
			}
		}
		if delay > l.maxSleep {
			delay = l.maxSleep
		}

		if !l.sleep(ctx, delay) {
			return
		}
	}
}

// iterate runs one step, converting a panic into an error.
func (l *Loop) iterate(ctx context.Context) (delay time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return l.step(ctx)
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-l.shutdown:
		return false
	case <-t.C:
		return true
	}
}

// Signal asks the loop to exit after its current iteration. The iteration's
// context is left alone.
func (l *Loop) Signal() {
	l.shutdownOnce.Do(func() { close(l.shutdown) })
}

// Shutdown signals the loop and waits for it to exit.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.Signal()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out", logger.String("loop", l.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool runs a fixed set of loops.
type Pool struct {
	loops  []*Loop
	logger logger.Logger
}

// NewPool creates a pool over loops.
func NewPool(loops ...*Loop) *Pool {
	return &Pool{
		loops:  loops,
		logger: logger.Get().Named("loop-pool"),
	}
}

// Len returns the number of loops.
func (p *Pool) Len() int { return len(p.loops) }

// Start starts all loops in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, l := range p.loops {
		go l.Run(ctx)
	}
	metrics.UpdateLoopsActive(len(p.loops))
}

// Shutdown stops every loop, waiting at most poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for _, l := range p.loops {
		l.Signal()
	}

	var firstErr error
	for _, l := range p.loops {
		if err := l.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "loop shutdown timed out", logger.String("loop", l.name))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateLoopsActive(0)
	return firstErr
}
