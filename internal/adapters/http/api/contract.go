package api

import (
	"fmt"
	"strings"

	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/spadl"
)

// actionJSON is one SPADL action on the wire.
type actionJSON struct {
	GameID          string   `json:"game_id,omitempty"`
	OriginalEventID string   `json:"original_event_id,omitempty"`
	PeriodID        *int     `json:"period_id"`
	TimeSeconds     *float64 `json:"time_seconds"`
	TeamID          string   `json:"team_id"`
	PlayerID        string   `json:"player_id,omitempty"`
	TypeName        string   `json:"type_name"`
	ResultName      string   `json:"result_name"`
	BodypartName    string   `json:"bodypart_name,omitempty"`
	StartX          *float64 `json:"start_x,omitempty"`
	StartY          *float64 `json:"start_y,omitempty"`
	EndX            *float64 `json:"end_x,omitempty"`
	EndY            *float64 `json:"end_y,omitempty"`
}

type probabilityJSON struct {
	ActionID           string  `json:"action_id,omitempty"`
	ScoresStandard     float64 `json:"scores_standard"`
	ScoresResultFree   float64 `json:"scores_resultfree"`
	ConcedesStandard   float64 `json:"concedes_standard"`
	ConcedesResultFree float64 `json:"concedes_resultfree"`
}

// optionsJSON overrides the service's label horizons for one request.
type optionsJSON struct {
	NrActions       *int     `json:"nr_actions,omitempty"`
	NrSeconds       *float64 `json:"nr_seconds,omitempty"`
	PrecheckActions *int     `json:"precheck_actions,omitempty"`
}

// gameRequest mirrors the body of POST /labels and POST /values.
type gameRequest struct {
	GameID        string            `json:"game_id"`
	Actions       []actionJSON      `json:"actions"`
	Probabilities []probabilityJSON `json:"probabilities,omitempty"`
	Options       *optionsJSON      `json:"options,omitempty"`
}

type gameResponse struct {
	GameID  string         `json:"game_id"`
	Labels  []model.Labels `json:"labels"`
	Values  []model.Values `json:"values,omitempty"`
	Summary *model.Summary `json:"summary,omitempty"`
}

func toResponse(res model.GameResult) gameResponse {
	return gameResponse{GameID: res.GameID, Labels: res.Labels, Values: res.Values, Summary: res.Summary}
}

// game converts the request into a domain game. Actions without a game_id
// inherit the request's. A game without actions rates to empty results.
func (r *gameRequest) game(withProbabilities bool) (model.Game, error) {
	id := strings.TrimSpace(r.GameID)
	if id == "" && len(r.Actions) > 0 {
		id = r.Actions[0].GameID
	}
	if id == "" {
		return model.Game{}, fmt.Errorf("%w: missing game_id", ErrBadRequest)
	}
	if len(r.Actions) == 0 {
		g := model.Game{ID: id}
		if withProbabilities {
			g.Probabilities = []model.Probabilities{}
		}
		return g, nil
	}

	g := model.Game{ID: id, Actions: make([]model.Action, len(r.Actions))}
	for i := range r.Actions {
		a, err := r.Actions[i].toModel(id)
		if err != nil {
			return model.Game{}, fmt.Errorf("%w: actions[%d]: %w", ErrBadRequest, i, err)
		}
		g.Actions[i] = a
	}
	if !withProbabilities {
		return g, nil
	}
	if len(r.Probabilities) == 0 {
		return model.Game{}, fmt.Errorf("%w: missing probabilities", ErrBadRequest)
	}
	g.Probabilities = make([]model.Probabilities, len(r.Probabilities))
	for i, p := range r.Probabilities {
		g.Probabilities[i] = model.Probabilities{
			ActionID:           p.ActionID,
			ScoresStandard:     p.ScoresStandard,
			ScoresResultFree:   p.ScoresResultFree,
			ConcedesStandard:   p.ConcedesStandard,
			ConcedesResultFree: p.ConcedesResultFree,
		}
	}
	return g, nil
}

func (a *actionJSON) toModel(gameID string) (model.Action, error) {
	switch {
	case a.PeriodID == nil:
		return model.Action{}, fmt.Errorf("%w: missing", model.ErrInvalidPeriod)
	case a.TimeSeconds == nil:
		return model.Action{}, fmt.Errorf("%w: missing", model.ErrInvalidTime)
	}
	typ, err := spadl.ParseActionType(a.TypeName)
	if err != nil {
		return model.Action{}, err
	}
	res, err := spadl.ParseResult(a.ResultName)
	if err != nil {
		return model.Action{}, err
	}
	bp := spadl.Foot
	if a.BodypartName != "" {
		if bp, err = spadl.ParseBodypart(a.BodypartName); err != nil {
			return model.Action{}, err
		}
	}
	if a.GameID != "" {
		gameID = a.GameID
	}
	return model.Action{
		GameID:          gameID,
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

// labelOptions applies the overrides on top of base.
func (o *optionsJSON) labelOptions(base labels.Config) []labels.Option {
	opts := []labels.Option{
		labels.WithNrActions(base.NrActions),
		labels.WithNrSeconds(base.NrSeconds),
		labels.WithPrecheckActions(base.PrecheckActions),
	}
	if o.NrActions != nil {
		opts = append(opts, labels.WithNrActions(*o.NrActions))
	}
	if o.NrSeconds != nil {
		opts = append(opts, labels.WithNrSeconds(*o.NrSeconds))
	}
	if o.PrecheckActions != nil {
		opts = append(opts, labels.WithPrecheckActions(*o.PrecheckActions))
	}
	return opts
}
