package sequence

import (
	"context"
	"fmt"

	"github.com/okian/vaep/internal/domain/dedupe"
	"github.com/okian/vaep/internal/domain/model"
)

// Partition splits a stream holding several games into one sequence per
// game, in order of first appearance. Each game must occupy one contiguous
// block of rows; a game that reappears after another game started is
// rejected, since windows would otherwise be computed over a mixed stream.
func Partition(ctx context.Context, actions []model.Action) ([]model.Game, error) {
	closed := dedupe.NewInMemoryDeduper()
	var games []model.Game

	start := 0
	for i := 1; i <= len(actions); i++ {
		if i < len(actions) && actions[i].GameID == actions[start].GameID {
			continue
		}
		id := actions[start].GameID
		if closed.SeenAndRecord(ctx, id) {
			return nil, fmt.Errorf("%w: game %q resumes at row %d", ErrInterleavedGames, id, start)
		}
		block := make([]model.Action, i-start)
		copy(block, actions[start:i])
		games = append(games, model.Game{ID: id, Actions: block})
		start = i
	}
	return games, nil
}

// Attach splits probabilities aligned to a partitioned stream back onto
// its games. probs must be aligned row by row with the stream the games
// were partitioned from.
func Attach(games []model.Game, probs []model.Probabilities) ([]model.Game, error) {
	total := 0
	for _, g := range games {
		total += len(g.Actions)
	}
	if len(probs) != total {
		return nil, fmt.Errorf("%w: %d actions, %d probability rows", ErrLengthMismatch, total, len(probs))
	}

	out := make([]model.Game, len(games))
	offset := 0
	for i, g := range games {
		n := len(g.Actions)
		p := make([]model.Probabilities, n)
		copy(p, probs[offset:offset+n])
		out[i] = model.Game{ID: g.ID, Actions: g.Actions, Probabilities: p}
		offset += n
	}
	return out, nil
}
