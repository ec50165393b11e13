package formula

import "errors"

// ErrMisaligned is returned when a probability record names a different
// action than the one at its position.
var ErrMisaligned = errors.New("probabilities not aligned with actions")
