package solver

import (
	"github.com/okian/genie/internal/domain/commitstore"
	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to a Miner.
type Option func(*Miner)

// WithBehaviour sets the protocol behaviour.
func WithBehaviour(b Behaviour) Option {
	return func(m *Miner) {
		if b != "" {
			m.behaviour = b
		}
	}
}

// WithStore sets the commit store.
func WithStore(s commitstore.Store) Option {
	return func(m *Miner) {
		m.store = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Miner) {
		if l != nil {
			m.logger = l
		}
	}
}
