package chain

import "errors"

var (
	// ErrInvalidInterval is returned for a non-positive block interval.
	ErrInvalidInterval = errors.New("block interval must be positive")

	// ErrEmptyRegistry is returned when no evaluator is registered.
	ErrEmptyRegistry = errors.New("registry has no evaluators")
)
