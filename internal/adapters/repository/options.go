package repository

import "github.com/okian/genie/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
