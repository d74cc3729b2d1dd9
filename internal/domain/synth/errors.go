package synth

import "errors"

// Sentinel kinds for synthesis errors.
var (
	ErrNoGenerators  = errors.New("no task generators registered")
	ErrInvalidWeight = errors.New("invalid generator weight")
	ErrEmptyDataset  = errors.New("dataset has no samples")
)
