// Package sequence holds the windowing helpers shared by the labelers and
// the value formula. All helpers work on positions of an ordered action
// sequence and never reorder or mutate it.
package sequence

import (
	"fmt"

	"github.com/okian/vaep/internal/domain/model"
)

// Ahead returns the position k actions after i in a sequence of length n.
// Offsets past the end saturate at the last position, so every window that
// reaches the end of the sequence repeats the final action.
func Ahead(n, i, k int) int {
	if j := i + k; j < n {
		return j
	}
	return n - 1
}

// Prev returns the position of the action preceding i. The first action has
// no predecessor and is its own reference.
func Prev(i int) int {
	if i == 0 {
		return 0
	}
	return i - 1
}

// SingleGame checks that all actions belong to the same game.
func SingleGame(actions []model.Action) error {
	for i := 1; i < len(actions); i++ {
		if actions[i].GameID != actions[0].GameID {
			return fmt.Errorf("%w: row %d has game %q, row 0 has %q",
				ErrMixedGames, i, actions[i].GameID, actions[0].GameID)
		}
	}
	return nil
}

// Validate checks every action's required fields and the single-game contract.
func Validate(actions []model.Action) error {
	if err := SingleGame(actions); err != nil {
		return err
	}
	for i := range actions {
		if err := actions[i].Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
