package model

import "errors"

// Error taxonomy shared by the evaluator pipeline.
var (
	// ErrTransportTimeout marks a solver call that did not answer in time.
	ErrTransportTimeout = errors.New("transport timeout")
	// ErrHashMismatch marks a reveal whose digest differs from its commitment.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrInvalidPayload marks a reveal that failed structural validation.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNoMinersAvailable is returned when the registry lists no solvers.
	ErrNoMinersAvailable = errors.New("no miners available")
	// ErrStaleSession marks a round scored after its session ended.
	ErrStaleSession = errors.New("stale session")
	// ErrUpstreamCallFailure wraps failures of scoring or registry backends.
	ErrUpstreamCallFailure = errors.New("upstream call failure")
	// ErrPublicationFailure wraps failures to publish weights.
	ErrPublicationFailure = errors.New("publication failure")
	// ErrSolverNotFound is returned for a solver without a ledger entry.
	ErrSolverNotFound = errors.New("solver not found")

	ErrDuplicateSolution = errors.New("duplicate solution")
	ErrInvalidTransition = errors.New("invalid round transition")
)
