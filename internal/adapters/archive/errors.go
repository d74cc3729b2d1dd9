package archive

import "errors"

var (
	// ErrNoDir is returned when the file archive has no directory.
	ErrNoDir = errors.New("archive directory not set")

	// ErrIncompleteInfluxConfig is returned when url, org or bucket is missing.
	ErrIncompleteInfluxConfig = errors.New("influx url, org and bucket are required")
)
