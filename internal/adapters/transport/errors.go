package transport

import "errors"

var (
	// ErrNotCommitted is returned by a solver handler asked to reveal a task it never committed to.
	ErrNotCommitted = errors.New("task not committed")

	// ErrUnavailable is returned by a solver handler that declines to answer.
	ErrUnavailable = errors.New("solver unavailable")
)
