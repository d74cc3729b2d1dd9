package solver

import "errors"

var (
	// ErrUnknownBehaviour is returned by ParseBehaviour.
	ErrUnknownBehaviour = errors.New("unknown behaviour")

	// ErrMissingAPIKey is returned when no model API key is configured.
	ErrMissingAPIKey = errors.New("model api key is required")

	// ErrNoChoices is returned when the model reply is empty.
	ErrNoChoices = errors.New("model returned no choices")
)
