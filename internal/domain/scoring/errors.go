package scoring

import "errors"

// ErrUnknownKind is returned for a round whose kind has no weight table.
var ErrUnknownKind = errors.New("unknown competition kind")
