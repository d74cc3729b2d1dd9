package commitstore

// Option applies a configuration option to the in-memory store.
type Option func(*inMemoryStore)

// WithMaxSize sets the number of outstanding commitments kept in memory.
// Non-positive values keep the default.
func WithMaxSize(maxSize int) Option {
	return func(s *inMemoryStore) {
		if maxSize > 0 {
			s.maxSize = maxSize
		}
	}
}
