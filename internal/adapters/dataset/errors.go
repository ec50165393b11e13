package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrMissingField = errors.New("missing required field")
	ErrEmpty        = errors.New("empty input")
	ErrInvalidValue = errors.New("invalid value")
)
