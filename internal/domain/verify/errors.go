package verify

import "errors"

// ErrAbsent marks a solver that did not answer a phase with status 200.
var ErrAbsent = errors.New("solver absent")
