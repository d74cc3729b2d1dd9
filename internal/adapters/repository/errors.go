package repository

import "errors"

// ErrNoPath is returned when a persistent store is opened without a directory.
var ErrNoPath = errors.New("database path is required")
