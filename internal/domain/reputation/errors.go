package reputation

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrMisaligned = errors.New("solver ids and scores are misaligned")
	ErrNoSnapshot = errors.New("no ledger snapshot")
	// ErrPersist marks a mutation that applied in memory but was not saved.
	ErrPersist = errors.New("persist ledger")
)
