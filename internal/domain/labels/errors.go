package labels

import "errors"

// Sentinel kinds for invalid label configuration.
var (
	ErrInvalidHorizon = errors.New("invalid action horizon")
	ErrInvalidWindow  = errors.New("invalid time window")
)
