package reputation

import "github.com/okian/genie/pkg/logger"

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithDecay sets the moving-average coefficient. Values outside [0, 1) are ignored.
func WithDecay(d float64) Option {
	return func(l *Ledger) {
		if d >= 0 && d < 1 {
			l.decay = d
		}
	}
}

// WithStore persists every mutation to s.
func WithStore(s Store) Option {
	return func(l *Ledger) {
		l.store = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.logger = log
		}
	}
}
