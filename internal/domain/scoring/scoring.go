// Package scoring turns verified solutions into per-metric and aggregated scores.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/pkg/logger"
)

// Metric names used by the kind weight table.
const (
	MetricVisualAccuracy    = "visual_accuracy"
	MetricStructuralQuality = "structural_quality"
	MetricDiscoverability   = "discoverability"
)

// Metric scores every solution of a round against its task.
// Results are index-aligned with solutions and expected in [0, 1].
type Metric interface {
	Name() string
	Score(ctx context.Context, task model.Task, solutions []model.Solution) ([]float64, error)
}

// Scorer applies the per-kind weight table to registered metrics.
type Scorer struct {
	metrics map[string]Metric
	weights map[model.Kind]map[string]float64
	logger  logger.Logger
}

// NewScorer creates a Scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		metrics: make(map[string]Metric),
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scoring")
	}
	return s
}

// DefaultWeights returns the built-in kind weight table.
func DefaultWeights() map[model.Kind]map[string]float64 {
	return map[model.Kind]map[string]float64{
		model.KindAccuracy: {MetricVisualAccuracy: 0.8, MetricStructuralQuality: 0.1, MetricDiscoverability: 0.1},
		model.KindQuality:  {MetricVisualAccuracy: 0.3, MetricStructuralQuality: 0.6, MetricDiscoverability: 0.1},
		model.KindSEO:      {MetricVisualAccuracy: 0.3, MetricStructuralQuality: 0.1, MetricDiscoverability: 0.6},
	}
}

// Register adds or replaces the metric under m.Name().
func (s *Scorer) Register(m Metric) {
	s.metrics[m.Name()] = m
}

// CalculateScores scores round.Solutions for round.Kind. A metric that is
// missing, fails, or returns a malformed result contributes zeros.
func (s *Scorer) CalculateScores(ctx context.Context, round *model.CompetitionRound) (model.ScoreRound, error) {
	weights, ok := s.weights[round.Kind]
	if !ok {
		return model.ScoreRound{}, fmt.Errorf("%w: %q", ErrUnknownKind, round.Kind)
	}

	n := len(round.Solutions)
	out := model.ScoreRound{
		Kind:       round.Kind,
		SolverIDs:  round.SolverIDs(),
		PerMetric:  make(map[string][]float64, len(weights)),
		Aggregated: make([]float64, n),
	}
	if n == 0 {
		return out, nil
	}

	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := s.metricValues(ctx, name, round)
		out.PerMetric[name] = values
		w := weights[name]
		for i, v := range values {
			out.Aggregated[i] += w * v
		}
	}
	return out, nil
}

func (s *Scorer) metricValues(ctx context.Context, name string, round *model.CompetitionRound) []float64 {
	n := len(round.Solutions)
	zeros := make([]float64, n)

	m, ok := s.metrics[name]
	if !ok {
		s.logger.Warn(ctx, "metric not registered", logger.String("metric", name))
		return zeros
	}
	values, err := m.Score(ctx, round.Task, round.Solutions)
	if err != nil {
		s.logger.Error(ctx, "metric failed",
			logger.String("metric", name),
			logger.String("task_id", round.Task.ID),
			logger.Error(err),
		)
		return zeros
	}
	if len(values) != n {
		s.logger.Error(ctx, "metric returned misaligned scores",
			logger.String("metric", name),
			logger.Int("expected", n),
			logger.Int("got", len(values)),
		)
		return zeros
	}
	for i, v := range values {
		values[i] = clamp01(v)
	}
	return values
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
