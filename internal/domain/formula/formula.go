// Package formula turns per-action scoring and conceding probabilities into
// offensive, defensive and total action values.
package formula

import (
	"fmt"
	"math"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
	"github.com/okian/vaep/internal/domain/spadl"
)

const (
	// PhaseTimeout is the gap in seconds after which the previous action no
	// longer carries its probability over.
	PhaseTimeout = 10.0
	// PenaltyPrior is the fixed reference scoring probability of a penalty.
	PenaltyPrior = 0.792453
	// CornerPrior is the fixed reference scoring probability of a corner.
	CornerPrior = 0.046500
)

// side selects which pair of resultfree estimates feeds the reference value.
type side int

const (
	offense side = iota
	defense
)

// pick returns the resultfree estimate of the side itself and the one of
// the opposite side.
func (s side) pick(p *model.Probabilities) (own, other float64) {
	if s == offense {
		return p.ScoresResultFree, p.ConcedesResultFree
	}
	return p.ConcedesResultFree, p.ScoresResultFree
}

// reference is the probability carried over from the preceding action.
// The first action is its own predecessor.
func reference(actions []model.Action, probs []model.Probabilities, i int, s side) float64 {
	cur := &actions[i]
	j := sequence.Prev(i)
	prev := &actions[j]

	own, other := s.pick(&probs[j])
	ref := other
	if prev.TeamID == cur.TeamID {
		ref = own
	}
	if math.Abs(cur.TimeSeconds-prev.TimeSeconds) > PhaseTimeout {
		ref = 0
	}
	if prev.IsGoal() {
		ref = 0
	}
	if s == defense {
		return ref
	}
	if cur.Type == spadl.ShotPenalty {
		ref = PenaltyPrior
	}
	if cur.Type.IsCorner() {
		ref = CornerPrior
	}
	return ref
}

// OffensiveValue is the change in the probability that the team in
// possession scores: scores_standard minus the reference.
func OffensiveValue(actions []model.Action, probs []model.Probabilities) ([]float64, error) {
	if err := Validate(actions, probs); err != nil {
		return nil, err
	}
	return offensive(actions, probs), nil
}

// DefensiveValue is the negated change in the probability that the team in
// possession concedes. The fixed priors do not apply.
func DefensiveValue(actions []model.Action, probs []model.Probabilities) ([]float64, error) {
	if err := Validate(actions, probs); err != nil {
		return nil, err
	}
	return defensive(actions, probs), nil
}

// Value returns offensive, defensive and combined value per action.
func Value(actions []model.Action, probs []model.Probabilities) ([]model.Values, error) {
	if err := Validate(actions, probs); err != nil {
		return nil, err
	}
	off := offensive(actions, probs)
	def := defensive(actions, probs)
	out := make([]model.Values, len(actions))
	for i := range out {
		out[i] = model.Values{
			Offensive: off[i],
			Defensive: def[i],
			VAEP:      off[i] + def[i],
		}
	}
	return out, nil
}

func offensive(actions []model.Action, probs []model.Probabilities) []float64 {
	out := make([]float64, len(actions))
	for i := range actions {
		out[i] = probs[i].ScoresStandard - reference(actions, probs, i, offense)
	}
	return out
}

func defensive(actions []model.Action, probs []model.Probabilities) []float64 {
	out := make([]float64, len(actions))
	for i := range actions {
		out[i] = -(probs[i].ConcedesStandard - reference(actions, probs, i, defense))
	}
	return out
}

// Validate checks the action sequence and that probs holds one valid record
// per action, in the same order.
func Validate(actions []model.Action, probs []model.Probabilities) error {
	if len(actions) != len(probs) {
		return fmt.Errorf("%w: %d actions, %d probabilities", sequence.ErrLengthMismatch, len(actions), len(probs))
	}
	if err := sequence.Validate(actions); err != nil {
		return err
	}
	for i := range probs {
		p := &probs[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if p.ActionID != "" && p.ActionID != actions[i].OriginalEventID {
			return fmt.Errorf("%w: row %d has %q, action is %q", ErrMisaligned, i, p.ActionID, actions[i].OriginalEventID)
		}
	}
	return nil
}
