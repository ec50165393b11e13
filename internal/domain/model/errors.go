package model

import "errors"

// Sentinel kinds for action data-contract violations.
var (
	ErrMissingTeam        = errors.New("missing team_id")
	ErrInvalidPeriod      = errors.New("invalid period_id")
	ErrInvalidTime        = errors.New("invalid time_seconds")
	ErrInvalidType        = errors.New("invalid action type")
	ErrInvalidResult      = errors.New("invalid result")
	ErrInvalidProbability = errors.New("invalid probability")
)
