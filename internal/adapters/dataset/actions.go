package dataset

import (
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/spadl"
)

// actionRow is one SPADL action as stored in CSV. Pointers mark columns
// whose absence must be detected.
type actionRow struct {
	GameID          string   `csv:"game_id"`
	OriginalEventID string   `csv:"original_event_id,omitempty"`
	PeriodID        *int     `csv:"period_id"`
	TimeSeconds     *float64 `csv:"time_seconds"`
	TeamID          string   `csv:"team_id"`
	PlayerID        string   `csv:"player_id,omitempty"`
	TypeName        string   `csv:"type_name"`
	ResultName      string   `csv:"result_name"`
	BodypartName    string   `csv:"bodypart_name,omitempty"`
	StartX          *float64 `csv:"start_x,omitempty"`
	StartY          *float64 `csv:"start_y,omitempty"`
	EndX            *float64 `csv:"end_x,omitempty"`
	EndY            *float64 `csv:"end_y,omitempty"`
}

var actionColumns = []string{"game_id", "period_id", "time_seconds", "team_id", "type_name", "result_name"}

func checkAction(row int, a *actionRow) error {
	switch {
	case a.GameID == "":
		return eris.Wrapf(ErrMissingField, "row %d: game_id", row)
	case a.PeriodID == nil:
		return eris.Wrapf(ErrMissingField, "row %d: period_id", row)
	case a.TimeSeconds == nil:
		return eris.Wrapf(ErrMissingField, "row %d: time_seconds", row)
	case a.TeamID == "":
		return eris.Wrapf(ErrMissingField, "row %d: team_id", row)
	case a.TypeName == "":
		return eris.Wrapf(ErrMissingField, "row %d: type_name", row)
	case a.ResultName == "":
		return eris.Wrapf(ErrMissingField, "row %d: result_name", row)
	}
	return nil
}

func (a *actionRow) toModel(row int) (model.Action, error) {
	typ, err := spadl.ParseActionType(a.TypeName)
	if err != nil {
		return model.Action{}, eris.Wrapf(err, "row %d", row)
	}
	res, err := spadl.ParseResult(a.ResultName)
	if err != nil {
		return model.Action{}, eris.Wrapf(err, "row %d", row)
	}
	bp := spadl.Foot
	if a.BodypartName != "" {
		if bp, err = spadl.ParseBodypart(a.BodypartName); err != nil {
			return model.Action{}, eris.Wrapf(err, "row %d", row)
		}
	}
	return model.Action{
		GameID:          a.GameID,
		OriginalEventID: a.OriginalEventID,
		PeriodID:        *a.PeriodID,
		TimeSeconds:     *a.TimeSeconds,
		TeamID:          a.TeamID,
		PlayerID:        a.PlayerID,
		Type:            typ,
		Result:          res,
		Bodypart:        bp,
		StartX:          a.StartX,
		StartY:          a.StartY,
		EndX:            a.EndX,
		EndY:            a.EndY,
	}, nil
}

// ReadActions reads SPADL actions. Required columns are game_id, period_id,
// time_seconds, team_id, type_name and result_name; the coordinates, player
// and bodypart are optional and an empty coordinate stays nil.
func ReadActions(r io.Reader) ([]model.Action, error) {
	rows, err := decodeAll(r, actionColumns, checkAction)
	if err != nil {
		return nil, err
	}
	out := make([]model.Action, len(rows))
	for i := range rows {
		if out[i], err = rows[i].toModel(i + 1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteActions writes actions in the layout ReadActions accepts.
func WriteActions(w io.Writer, actions []model.Action) error {
	rows := make([]actionRow, len(actions))
	for i := range actions {
		a := &actions[i]
		period, t := a.PeriodID, a.TimeSeconds
		rows[i] = actionRow{
			GameID:          a.GameID,
			OriginalEventID: a.OriginalEventID,
			PeriodID:        &period,
			TimeSeconds:     &t,
			TeamID:          a.TeamID,
			PlayerID:        a.PlayerID,
			TypeName:        a.Type.String(),
			ResultName:      a.Result.String(),
			BodypartName:    a.Bodypart.String(),
			StartX:          a.StartX,
			StartY:          a.StartY,
			EndX:            a.EndX,
			EndY:            a.EndY,
		}
	}
	return encodeAll(w, rows)
}

type probabilityRow struct {
	ActionID           string   `csv:"action_id,omitempty"`
	ScoresStandard     *float64 `csv:"scores_standard"`
	ScoresResultFree   *float64 `csv:"scores_resultfree"`
	ConcedesStandard   *float64 `csv:"concedes_standard"`
	ConcedesResultFree *float64 `csv:"concedes_resultfree"`
}

var probabilityColumns = []string{"scores_standard", "scores_resultfree", "concedes_standard", "concedes_resultfree"}

func checkProbability(row int, p *probabilityRow) error {
	for i, v := range []*float64{p.ScoresStandard, p.ScoresResultFree, p.ConcedesStandard, p.ConcedesResultFree} {
		if v == nil {
			return eris.Wrapf(ErrMissingField, "row %d: %s", row, probabilityColumns[i])
		}
		if math.IsNaN(*v) {
			return eris.Wrapf(ErrInvalidValue, "row %d: %s is NaN", row, probabilityColumns[i])
		}
	}
	return nil
}

// ReadProbabilities reads the four probability estimates per action. The
// optional action_id column ties a row to an action's original_event_id.
func ReadProbabilities(r io.Reader) ([]model.Probabilities, error) {
	rows, err := decodeAll(r, probabilityColumns, checkProbability)
	if err != nil {
		return nil, err
	}
	out := make([]model.Probabilities, len(rows))
	for i, p := range rows {
		out[i] = model.Probabilities{
			ActionID:           p.ActionID,
			ScoresStandard:     *p.ScoresStandard,
			ScoresResultFree:   *p.ScoresResultFree,
			ConcedesStandard:   *p.ConcedesStandard,
			ConcedesResultFree: *p.ConcedesResultFree,
		}
	}
	return out, nil
}

// WriteProbabilities writes estimates in the layout ReadProbabilities accepts.
func WriteProbabilities(w io.Writer, probs []model.Probabilities) error {
	rows := make([]probabilityRow, len(probs))
	for i := range probs {
		p := probs[i]
		rows[i] = probabilityRow{
			ActionID:           p.ActionID,
			ScoresStandard:     &p.ScoresStandard,
			ScoresResultFree:   &p.ScoresResultFree,
			ConcedesStandard:   &p.ConcedesStandard,
			ConcedesResultFree: &p.ConcedesResultFree,
		}
	}
	return encodeAll(w, rows)
}
