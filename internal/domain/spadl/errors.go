package spadl

import "errors"

// Sentinel kinds for vocabulary lookups.
var (
	ErrUnknownActionType = errors.New("unknown action type")
	ErrUnknownResult     = errors.New("unknown result")
	ErrUnknownBodypart   = errors.New("unknown bodypart")
)
