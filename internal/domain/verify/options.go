package verify

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAllowedPlaceholders accepts references equal to, prefixed by, or ending
// in one of refs.
func WithAllowedPlaceholders(refs ...string) Option {
	return func(e *Engine) {
		for _, r := range refs {
			if r != "" {
				e.allowed = append(e.allowed, r)
			}
		}
	}
}

// WithResourceChecker accepts remote http(s) references that c can resolve.
func WithResourceChecker(c ResourceChecker) Option {
	return func(e *Engine) {
		e.checker = c
	}
}

// WithMaxPayloadBytes bounds the accepted reveal size.
func WithMaxPayloadBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}
