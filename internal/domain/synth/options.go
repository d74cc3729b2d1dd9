package synth

import (
	"math/rand"

	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to the Synthesizer.
type Option func(*Synthesizer)

// WithSeed makes generator selection deterministic.
func WithSeed(seed int64) Option {
	return func(s *Synthesizer) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible selection
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}
