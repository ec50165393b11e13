// Package labels computes the training labels of the VAEP framework: whether
// the team in possession scores or concedes within a bounded horizon after
// each action.
package labels

import (
	"fmt"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
)

// creditFn reports whether action a counts as a goal for (or against) team.
type creditFn func(team string, a *model.Action) bool

// scoredFor: team scored, or the opponent put the ball in its own net.
func scoredFor(team string, a *model.Action) bool {
	return (a.IsGoal() && a.TeamID == team) || (a.IsOwnGoal() && a.TeamID != team)
}

// concededBy: the opponent scored, or team put the ball in its own net.
func concededBy(team string, a *model.Action) bool {
	return (a.IsGoal() && a.TeamID != team) || (a.IsOwnGoal() && a.TeamID == team)
}

// Scores reports, per action, whether the team in possession scores within
// the next nrActions actions (the action itself included).
func Scores(actions []model.Action, nrActions int) ([]bool, error) {
	if err := checkHorizon(nrActions); err != nil {
		return nil, err
	}
	if err := sequence.Validate(actions); err != nil {
		return nil, err
	}
	return countWindow(actions, nrActions, scoredFor), nil
}

// Concedes reports, per action, whether the team in possession concedes
// within the next nrActions actions (the action itself included).
func Concedes(actions []model.Action, nrActions int) ([]bool, error) {
	if err := checkHorizon(nrActions); err != nil {
		return nil, err
	}
	if err := sequence.Validate(actions); err != nil {
		return nil, err
	}
	return countWindow(actions, nrActions, concededBy), nil
}

// GoalFromShot reports, per action, whether the action itself is a goal.
func GoalFromShot(actions []model.Action) []bool {
	out := make([]bool, len(actions))
	for i := range actions {
		out[i] = actions[i].IsGoal()
	}
	return out
}

// countWindow looks at offsets 0..nrActions-1 from every action. Offsets past
// the end of the sequence repeat the last action, so for the final action
// the label reduces to its own goal or own-goal flag.
func countWindow(actions []model.Action, nrActions int, credit creditFn) []bool {
	n := len(actions)
	out := make([]bool, n)
	for i := range actions {
		team := actions[i].TeamID
		for k := 0; k < nrActions; k++ {
			if credit(team, &actions[sequence.Ahead(n, i, k)]) {
				out[i] = true
				break
			}
		}
	}
	return out
}

func checkHorizon(nrActions int) error {
	if nrActions < 1 {
		return fmt.Errorf("%w: nr_actions=%d", ErrInvalidHorizon, nrActions)
	}
	return nil
}
