package scoring

import (
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeightsFromConfig replaces the kind weight table. Unknown kinds and
// negative weights are ignored; kinds absent from weights keep their defaults.
func WithWeightsFromConfig(weights map[string]map[string]float64) Option {
	return func(s *Scorer) {
		for kind, metrics := range weights {
			k := model.Kind(kind)
			if !k.Valid() {
				continue
			}
			table := make(map[string]float64, len(metrics))
			for name, w := range metrics {
				if w >= 0 {
					table[name] = w
				}
			}
			s.weights[k] = table
		}
	}
}

// WithMetrics registers metrics.
func WithMetrics(metrics ...Metric) Option {
	return func(s *Scorer) {
		for _, m := range metrics {
			if m != nil {
				s.metrics[m.Name()] = m
			}
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}
