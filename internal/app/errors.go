package service

import "errors"

var (
	// ErrMissingDependency is returned by New without a clock, registry or scheduler.
	ErrMissingDependency = errors.New("clock, registry and scheduler are required")

	// ErrOutsidePublishWindow is returned by SetWeights outside the publication window.
	ErrOutsidePublishWindow = errors.New("outside publish window")

	// ErrNoValidResponse is returned when no solver gave a usable organic answer.
	ErrNoValidResponse = errors.New("no valid solver response")
)
