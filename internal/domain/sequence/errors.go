package sequence

import "errors"

// Sentinel kinds for sequence contract violations.
var (
	ErrMixedGames       = errors.New("actions span more than one game")
	ErrInterleavedGames = errors.New("game actions are not contiguous")
	ErrLengthMismatch   = errors.New("series length mismatch")
)
