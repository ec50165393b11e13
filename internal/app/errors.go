package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrGameInFlight = errors.New("game already being rated")
	ErrBusy         = errors.New("service busy")
)
