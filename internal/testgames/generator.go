// Package testgames generates synthetic SPADL games for tests and local
// experiments. Output is deterministic for a given seed.
package testgames

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/spadl"
)

// Generation constants.
const (
	defaultSeed       = 42
	defaultPeriodSecs = 45 * 60
	maxGapSeconds     = 12.0
	shotShare         = 0.08
	goalShare         = 0.15
	ownGoalShare      = 0.03
	turnoverShare     = 0.3
)

// Teams used by generated games.
const (
	HomeTeam = "home"
	AwayTeam = "away"
)

// Generator produces synthetic games.
type Generator struct {
	rng *rand.Rand
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible tests
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // deterministic seed for reproducible tests
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Game returns a game of n actions split across two periods. An empty id is
// replaced by a random UUID.
func (g *Generator) Game(id string, n int) model.Game {
	if id == "" {
		id = uuid.NewString()
	}
	actions := make([]model.Action, n)
	team := HomeTeam
	period, clock := 1, 0.0
	for i := range actions {
		if period == 1 && i >= n/2 && n > 1 {
			period, clock = 2, 0
		}
		clock += g.rng.Float64() * maxGapSeconds
		if clock > defaultPeriodSecs {
			clock = defaultPeriodSecs
		}
		if g.rng.Float64() < turnoverShare {
			team = other(team)
		}
		actions[i] = g.action(id, i, period, clock, team)
		if actions[i].IsGoal() || actions[i].IsOwnGoal() {
			// kick-off restarts possession
			team = other(actions[i].TeamID)
		}
	}
	return model.Game{ID: id, Actions: actions}
}

// Probabilities returns random estimates aligned with actions.
func (g *Generator) Probabilities(actions []model.Action) []model.Probabilities {
	out := make([]model.Probabilities, len(actions))
	for i := range actions {
		out[i] = model.Probabilities{
			ActionID:           actions[i].OriginalEventID,
			ScoresStandard:     g.rng.Float64() * 0.2,
			ScoresResultFree:   g.rng.Float64() * 0.2,
			ConcedesStandard:   g.rng.Float64() * 0.1,
			ConcedesResultFree: g.rng.Float64() * 0.1,
		}
	}
	return out
}

// RatedGame returns a game with probabilities attached.
func (g *Generator) RatedGame(id string, n int) model.Game {
	game := g.Game(id, n)
	game.Probabilities = g.Probabilities(game.Actions)
	return game
}

func (g *Generator) action(gameID string, i, period int, clock float64, team string) model.Action {
	a := model.Action{
		GameID:          gameID,
		OriginalEventID: gameID + "-" + strconv.Itoa(i),
		PeriodID:        period,
		TimeSeconds:     clock,
		TeamID:          team,
		PlayerID:        team + "-" + strconv.Itoa(g.rng.Intn(11)+1),
		Type:            spadl.Pass,
		Result:          spadl.Success,
	}
	x, y := g.rng.Float64()*105, g.rng.Float64()*68
	a.StartX, a.StartY = &x, &y

	if g.rng.Float64() < shotShare {
		a.Type = []spadl.ActionType{spadl.Shot, spadl.Shot, spadl.ShotFreekick, spadl.ShotPenalty}[g.rng.Intn(4)]
		switch r := g.rng.Float64(); {
		case r < ownGoalShare:
			a.Result = spadl.OwnGoal
		case r < ownGoalShare+goalShare:
			a.Result = spadl.Success
		default:
			a.Result = spadl.Fail
		}
		return a
	}
	a.Type = spadl.ActionType(g.rng.Intn(len(spadl.ActionTypes())))
	if a.Type.IsShot() {
		a.Type = spadl.Dribble
	}
	if g.rng.Float64() < turnoverShare {
		a.Result = spadl.Fail
	}
	return a
}

func other(team string) string {
	if team == HomeTeam {
		return AwayTeam
	}
	return HomeTeam
}
