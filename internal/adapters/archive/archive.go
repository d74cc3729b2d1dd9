// Package archive keeps a record of every scored round.
//
// Archiving is best effort: callers log failures and carry on.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/okian/genie/internal/domain/model"
)

// Record is the archived form of one scored round.
type Record struct {
	TaskID     string               `json:"task_id"`
	Source     string               `json:"source"`
	Kind       model.Kind           `json:"kind"`
	Session    uint64               `json:"session"`
	SolverIDs  []string             `json:"solver_ids"`
	PerMetric  map[string][]float64 `json:"per_metric"`
	Aggregated []float64            `json:"aggregated"`
	CreatedAt  time.Time            `json:"created_at"`
	ScoredAt   time.Time            `json:"scored_at"`
}

// NewRecord builds the archive record for a scored round.
func NewRecord(round *model.CompetitionRound, scores model.ScoreRound, scoredAt time.Time) Record {
	return Record{
		TaskID:     round.Task.ID,
		Source:     round.Task.Source,
		Kind:       scores.Kind,
		Session:    round.SessionNumber,
		SolverIDs:  scores.SolverIDs,
		PerMetric:  scores.PerMetric,
		Aggregated: scores.Aggregated,
		CreatedAt:  round.Task.CreatedAt,
		ScoredAt:   scoredAt,
	}
}

// Archiver stores round records.
type Archiver interface {
	Archive(ctx context.Context, r Record) error
	Close() error
}

// Multi fans a record out to several archivers. Every archiver is tried.
type Multi []Archiver

func (m Multi) Archive(ctx context.Context, r Record) error {
	var errs []error
	for _, a := range m {
		if err := a.Archive(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards records.
type Nop struct{}

func (Nop) Archive(context.Context, Record) error { return nil }
func (Nop) Close() error                          { return nil }
