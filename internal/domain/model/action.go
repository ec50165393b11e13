// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"

	"github.com/okian/vaep/internal/domain/spadl"
)

// Action is one on-ball action of a game in the SPADL schema.
type Action struct {
	GameID          string
	OriginalEventID string
	PeriodID        int
	TimeSeconds     float64 // elapsed time within the period; resets each period
	TeamID          string  // team in possession
	PlayerID        string
	Type            spadl.ActionType
	Result          spadl.Result
	Bodypart        spadl.Bodypart

	StartX *float64
	StartY *float64
	EndX   *float64
	EndY   *float64
}

// IsGoal reports whether the action is a shot that resulted in a goal.
func (a *Action) IsGoal() bool {
	return a.Type.IsShot() && a.Result == spadl.Success
}

// IsOwnGoal reports whether the action is a shot-family own goal.
func (a *Action) IsOwnGoal() bool {
	return a.Type.IsShot() && a.Result == spadl.OwnGoal
}

// Validate checks the fields every computation depends on.
func (a *Action) Validate() error {
	switch {
	case a.TeamID == "":
		return ErrMissingTeam
	case a.PeriodID <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, a.PeriodID)
	case math.IsNaN(a.TimeSeconds) || math.IsInf(a.TimeSeconds, 0):
		return fmt.Errorf("%w: %v", ErrInvalidTime, a.TimeSeconds)
	case !a.Type.Valid():
		return fmt.Errorf("%w: %s", ErrInvalidType, a.Type)
	case !a.Result.Valid():
		return fmt.Errorf("%w: %s", ErrInvalidResult, a.Result)
	}
	return nil
}

// Probabilities holds the four model estimates attached to one action.
type Probabilities struct {
	// ActionID optionally names the action the estimates belong to; when set
	// it must match the aligned action's OriginalEventID.
	ActionID string

	ScoresStandard     float64
	ScoresResultFree   float64
	ConcedesStandard   float64
	ConcedesResultFree float64
}

// Validate checks that every estimate is a finite probability.
func (p *Probabilities) Validate() error {
	for _, v := range [...]struct {
		name string
		val  float64
	}{
		{"scores_standard", p.ScoresStandard},
		{"scores_resultfree", p.ScoresResultFree},
		{"concedes_standard", p.ConcedesStandard},
		{"concedes_resultfree", p.ConcedesResultFree},
	} {
		if math.IsNaN(v.val) || v.val < 0 || v.val > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidProbability, v.name, v.val)
		}
	}
	return nil
}

// Labels holds the training labels computed for one action.
type Labels struct {
	Scores        bool `json:"scores"`
	Concedes      bool `json:"concedes"`
	ScoresTimed   bool `json:"scores_timed"`
	ConcedesTimed bool `json:"concedes_timed"`
	GoalFromShot  bool `json:"goal_from_shot"`
}

// Values holds the valuation of one action.
type Values struct {
	Offensive float64 `json:"offensive_value"`
	Defensive float64 `json:"defensive_value"`
	VAEP      float64 `json:"vaep_value"`
}
