package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound    = errors.New("game not found")
	ErrInvalidGame = errors.New("invalid game result")
)
