package dataset

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
)

// labelRow and valueRow lead with the position and source of the action so
// output rows can be joined back to the input.
type labelRow struct {
	GameID          string `csv:"game_id"`
	ActionIndex     int    `csv:"action_index"`
	OriginalEventID string `csv:"original_event_id"`
	TeamID          string `csv:"team_id"`
	PlayerID        string `csv:"player_id"`
	TypeName        string `csv:"type_name"`
	Scores          bool   `csv:"scores"`
	Concedes        bool   `csv:"concedes"`
	ScoresTimed     bool   `csv:"scores_timed"`
	ConcedesTimed   bool   `csv:"concedes_timed"`
	GoalFromShot    bool   `csv:"goal_from_shot"`
}

type valueRow struct {
	GameID          string  `csv:"game_id"`
	ActionIndex     int     `csv:"action_index"`
	OriginalEventID string  `csv:"original_event_id"`
	TeamID          string  `csv:"team_id"`
	PlayerID        string  `csv:"player_id"`
	TypeName        string  `csv:"type_name"`
	Offensive       float64 `csv:"offensive_value"`
	Defensive       float64 `csv:"defensive_value"`
	VAEP            float64 `csv:"vaep_value"`
}

// positions returns each action's index within its game; the index restarts
// whenever game_id changes.
func positions(actions []model.Action) []int {
	out := make([]int, len(actions))
	for i := 1; i < len(actions); i++ {
		if actions[i].GameID == actions[i-1].GameID {
			out[i] = out[i-1] + 1
		}
	}
	return out
}

// WriteLabels writes one row per action with its five labels.
func WriteLabels(w io.Writer, actions []model.Action, labels []model.Labels) error {
	if len(actions) != len(labels) {
		return eris.Wrapf(sequence.ErrLengthMismatch, "labels: %d actions, %d rows", len(actions), len(labels))
	}
	idx := positions(actions)
	rows := make([]labelRow, len(actions))
	for i := range actions {
		a, l := &actions[i], labels[i]
		rows[i] = labelRow{
			GameID:          a.GameID,
			ActionIndex:     idx[i],
			OriginalEventID: a.OriginalEventID,
			TeamID:          a.TeamID,
			PlayerID:        a.PlayerID,
			TypeName:        a.Type.String(),
			Scores:          l.Scores,
			Concedes:        l.Concedes,
			ScoresTimed:     l.ScoresTimed,
			ConcedesTimed:   l.ConcedesTimed,
			GoalFromShot:    l.GoalFromShot,
		}
	}
	return encodeAll(w, rows)
}

// WriteValues writes one row per action with its offensive, defensive and
// total value.
func WriteValues(w io.Writer, actions []model.Action, values []model.Values) error {
	if len(actions) != len(values) {
		return eris.Wrapf(sequence.ErrLengthMismatch, "values: %d actions, %d rows", len(actions), len(values))
	}
	idx := positions(actions)
	rows := make([]valueRow, len(actions))
	for i := range actions {
		a, v := &actions[i], values[i]
		rows[i] = valueRow{
			GameID:          a.GameID,
			ActionIndex:     idx[i],
			OriginalEventID: a.OriginalEventID,
			TeamID:          a.TeamID,
			PlayerID:        a.PlayerID,
			TypeName:        a.Type.String(),
			Offensive:       v.Offensive,
			Defensive:       v.Defensive,
			VAEP:            v.VAEP,
		}
	}
	return encodeAll(w, rows)
}

// WriteResults writes the labels, and the values when present, of several
// games to their respective writers. values may be nil.
func WriteResults(labels, values io.Writer, games []model.Game, results []model.GameResult) error {
	var (
		actions []model.Action
		ls      []model.Labels
		vs      []model.Values
	)
	for i, r := range results {
		actions = append(actions, games[i].Actions...)
		ls = append(ls, r.Labels...)
		vs = append(vs, r.Values...)
	}
	if labels != nil {
		if err := WriteLabels(labels, actions, ls); err != nil {
			return err
		}
	}
	if values != nil {
		return WriteValues(values, actions, vs)
	}
	return nil
}
