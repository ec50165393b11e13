package labels

import (
	"fmt"
	"math"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
)

// ScoresTimeWindow reports, per action, whether the team in possession
// scores within nrSeconds of the action. A count window of nrActions is
// applied first as a lower bound.
func ScoresTimeWindow(actions []model.Action, nrSeconds float64, nrActions int) ([]bool, error) {
	if err := checkTimeWindow(nrSeconds, nrActions); err != nil {
		return nil, err
	}
	if err := sequence.Validate(actions); err != nil {
		return nil, err
	}
	return timeWindow(actions, nrSeconds, nrActions, scoredFor), nil
}

// ConcedesTimeWindow reports, per action, whether the team in possession
// concedes within nrSeconds of the action. A count window of nrActions is
// applied first as a lower bound.
func ConcedesTimeWindow(actions []model.Action, nrSeconds float64, nrActions int) ([]bool, error) {
	if err := checkTimeWindow(nrSeconds, nrActions); err != nil {
		return nil, err
	}
	if err := sequence.Validate(actions); err != nil {
		return nil, err
	}
	return timeWindow(actions, nrSeconds, nrActions, concededBy), nil
}

// timeWindow scans forward from each action while the clock stays within
// nrSeconds. time_seconds restarts at zero every period, so the absolute
// difference to a later period's clock normally exceeds the bound on its
// own; the period check makes the cutoff exact.
func timeWindow(actions []model.Action, nrSeconds float64, nrActions int, credit creditFn) []bool {
	out := countWindow(actions, nrActions, credit)
	for i := range actions {
		if out[i] {
			continue
		}
		start := &actions[i]
		for j := i + 1; j < len(actions); j++ {
			a := &actions[j]
			if a.PeriodID != start.PeriodID || math.Abs(a.TimeSeconds-start.TimeSeconds) >= nrSeconds {
				break
			}
			if credit(start.TeamID, a) {
				out[i] = true
				break
			}
		}
	}
	return out
}

func checkTimeWindow(nrSeconds float64, nrActions int) error {
	if math.IsNaN(nrSeconds) || nrSeconds <= 0 {
		return fmt.Errorf("%w: nr_seconds=%v", ErrInvalidWindow, nrSeconds)
	}
	return checkHorizon(nrActions)
}
