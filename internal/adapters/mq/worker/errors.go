package worker

import "errors"

// ErrPanic wraps a recovered step panic.
var ErrPanic = errors.New("loop step panicked")
