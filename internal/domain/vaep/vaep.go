// Package vaep bundles the label generator and the value formula behind a
// single engine that rates one game at a time.
package vaep

import (
	"context"
	"fmt"

	"github.com/okian/vaep/internal/domain/formula"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLabelOptions sets the horizons used for labeling.
func WithLabelOptions(opts ...labels.Option) Option {
	return func(e *Engine) {
		e.labelOpts = append(e.labelOpts, opts...)
	}
}

// WithoutSummary disables the per-player and per-team summary in Rate.
func WithoutSummary() Option {
	return func(e *Engine) { e.summary = false }
}

// Engine validates a game and runs the label generator and value formula
// over it. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	labelOpts []labels.Option
	cfg       labels.Config
	summary   bool
}

// New creates an Engine. Invalid horizons are rejected here, not clamped.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{summary: true}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = labels.NewConfig(e.labelOpts...)
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Config returns the label horizons in effect.
func (e *Engine) Config() labels.Config {
	return e.cfg
}

// Labels computes every label for the actions of one game.
func (e *Engine) Labels(ctx context.Context, actions []model.Action) ([]model.Labels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return labels.Compute(actions, e.labelOpts...)
}

// Values computes the action values for one game.
func (e *Engine) Values(ctx context.Context, actions []model.Action, probs []model.Probabilities) ([]model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return formula.Value(actions, probs)
}

// Rate labels a game and, when it carries probabilities, values it and
// summarizes the values per player and team.
func (e *Engine) Rate(ctx context.Context, game model.Game) (model.GameResult, error) {
	for i := range game.Actions {
		if game.ID != "" && game.Actions[i].GameID != game.ID {
			return model.GameResult{}, fmt.Errorf("%w: row %d has game %q, want %q",
				sequence.ErrMixedGames, i, game.Actions[i].GameID, game.ID)
		}
	}
	res := model.GameResult{GameID: game.ID}
	if res.GameID == "" && len(game.Actions) > 0 {
		res.GameID = game.Actions[0].GameID
	}

	lbls, err := e.Labels(ctx, game.Actions)
	if err != nil {
		return model.GameResult{}, err
	}
	res.Labels = lbls

	if game.Probabilities == nil {
		return res, nil
	}
	values, err := e.Values(ctx, game.Actions, game.Probabilities)
	if err != nil {
		return model.GameResult{}, err
	}
	res.Values = values
	if e.summary {
		res.Summary = Summarize(game.Actions, values)
	}
	return res, nil
}
