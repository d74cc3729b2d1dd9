// Package session derives sessions, competition kinds and the query and
// publish windows from block height.
//
// All arithmetic is on block numbers. Nothing here reads a clock.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/genie/internal/domain/model"
)

// ErrInvalidParams is returned by New for unusable timing parameters.
var ErrInvalidParams = errors.New("invalid session parameters")

// Params holds the network timing constants.
type Params struct {
	SessionWindowBlocks      uint64
	MaxEvaluators            int
	PerEvaluatorPeriodBlocks uint64
	SetWeightsPeriodBlocks   uint64
	BlockDuration            time.Duration
}

// Window is the scheduling decision for one block.
type Window struct {
	// Eligible is false when the evaluator holds no query slot at all.
	Eligible bool
	// Active reports whether block lies inside [Start, End).
	Active bool
	Start  uint64
	End    uint64
	// SleepBlocks is how long to wait before the window opens. Zero when active.
	SleepBlocks uint64
}

// Scheduler computes windows from block height.
type Scheduler struct {
	p Params
}

// New validates p and returns a Scheduler.
func New(p Params) (*Scheduler, error) {
	switch {
	case p.SessionWindowBlocks == 0:
		return nil, fmt.Errorf("%w: session window must be positive", ErrInvalidParams)
	case p.MaxEvaluators <= 0:
		return nil, fmt.Errorf("%w: max evaluators must be positive", ErrInvalidParams)
	case p.PerEvaluatorPeriodBlocks < 2:
		return nil, fmt.Errorf("%w: per-evaluator period must be at least 2 blocks", ErrInvalidParams)
	case p.SetWeightsPeriodBlocks == 0 || p.SetWeightsPeriodBlocks > p.SessionWindowBlocks:
		return nil, fmt.Errorf("%w: set-weights period must be in (0, session window]", ErrInvalidParams)
	case p.BlockDuration <= 0:
		return nil, fmt.Errorf("%w: block duration must be positive", ErrInvalidParams)
	}
	return &Scheduler{p: p}, nil
}

// Params returns the scheduler's timing constants.
func (s *Scheduler) Params() Params { return s.p }

// SessionNumber returns block / SessionWindowBlocks.
func (s *Scheduler) SessionNumber(block uint64) uint64 {
	return block / s.p.SessionWindowBlocks
}

// Kind returns the competition kind of session.
func (s *Scheduler) Kind(session uint64) model.Kind {
	return model.KindForSession(session)
}

// QueryPeriod is the number of blocks after which query slots repeat.
func (s *Scheduler) QueryPeriod() uint64 {
	return uint64(s.p.MaxEvaluators) * s.p.PerEvaluatorPeriodBlocks
}

// QueryWindow returns the query slot of the evaluator at ordinal index.
// Each slot is active for the first half of its per-evaluator period.
// Indices outside [0, MaxEvaluators) are not eligible and are told to wait a
// full period before checking again.
func (s *Scheduler) QueryWindow(block uint64, index int) Window {
	period := s.QueryPeriod()
	if index < 0 || index >= s.p.MaxEvaluators {
		return Window{SleepBlocks: period}
	}

	start := (block/period)*period + uint64(index)*s.p.PerEvaluatorPeriodBlocks
	end := start + s.p.PerEvaluatorPeriodBlocks/2
	w := Window{Eligible: true, Start: start, End: end}

	switch {
	case block < start:
		w.SleepBlocks = start - block
	case block >= end:
		w.Start += period
		w.End += period
		w.SleepBlocks = w.Start - block
	default:
		w.Active = true
	}
	return w
}

// PublishWindow returns the weight publication window of the session that
// contains block. It spans the last SetWeightsPeriodBlocks of the session.
func (s *Scheduler) PublishWindow(block uint64) Window {
	end := (block/s.p.SessionWindowBlocks + 1) * s.p.SessionWindowBlocks
	start := end - s.p.SetWeightsPeriodBlocks
	w := Window{Eligible: true, Start: start, End: end}
	if block >= start {
		w.Active = true
		return w
	}
	w.SleepBlocks = start - block
	return w
}

// Duration converts a block count to wall-clock time.
func (s *Scheduler) Duration(blocks uint64) time.Duration {
	return time.Duration(blocks) * s.p.BlockDuration
}
