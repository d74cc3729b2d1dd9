package service

import (
	"time"

	"github.com/okian/genie/internal/adapters/archive"
	"github.com/okian/genie/internal/adapters/chain"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/internal/domain/synth"
	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithHotkey sets this evaluator's identity in the registry.
func WithHotkey(hotkey string) Option {
	return func(s *Service) {
		s.hotkey = hotkey
	}
}

// WithTransport sets the solver transport.
func WithTransport(t Transport) Option {
	return func(s *Service) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithVerifier sets the verification engine.
func WithVerifier(v Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithScorer sets the round scorer.
func WithScorer(sc Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithLedger sets the reputation ledger.
func WithLedger(l *reputation.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithPublisher sets the weight publisher.
func WithPublisher(p chain.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithArchiver sets the round archiver.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) {
		if a != nil {
			s.archiver = a
		}
	}
}

// WithGenerator registers a task generator with a selection weight.
func WithGenerator(g synth.Generator, weight float64) Option {
	return func(s *Service) {
		s.generators = append(s.generators, generatorWeight{gen: g, weight: weight})
	}
}

// WithQueueSizes sets the pending-task and pending-scoring bounds.
func WithQueueSizes(pending, scoring int) Option {
	return func(s *Service) {
		if pending > 0 {
			s.pendingSize = pending
		}
		if scoring > 0 {
			s.scoringSize = scoring
		}
	}
}

// WithRevealDelay sets the extra wait between the commit deadline and the reveal.
func WithRevealDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.revealDelay = d
		}
	}
}

// WithRevealTimeout sets the reveal phase timeout.
func WithRevealTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.revealTimeout = d
		}
	}
}

// WithTaskTimeout sets the commit timeout for tasks that carry none.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithSynthesisRate caps synthesized tasks per second.
func WithSynthesisRate(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.synthesisRate = perSecond
		}
	}
}

// WithRegistrySync sets how often the registry is re-read.
func WithRegistrySync(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithIdleDelay sets the pause of a loop that found nothing to do.
func WithIdleDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleDelay = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
