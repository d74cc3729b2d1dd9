package queue

type settings struct {
	capacity int
	name     string
}

// Option applies a configuration option to an InMemoryQueue.
type Option func(*settings)

// WithCapacity sets the maximum number of queued items.
func WithCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithName sets the queue label used in metrics.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}
