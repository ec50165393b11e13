package labels

import (
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
)

// Default horizons.
const (
	DefaultNrActions       = 10
	DefaultNrSeconds       = 15.0
	DefaultPrecheckActions = 3
)

// Config holds the horizons used by Compute.
type Config struct {
	NrActions       int     // count horizon of Scores/Concedes
	NrSeconds       float64 // time bound of the timed labels
	PrecheckActions int     // count pre-check of the timed labels
}

// Option applies a configuration option to Compute.
type Option func(*Config)

// WithNrActions sets the count horizon.
func WithNrActions(n int) Option {
	return func(c *Config) { c.NrActions = n }
}

// WithNrSeconds sets the time bound of the timed labels.
func WithNrSeconds(s float64) Option {
	return func(c *Config) { c.NrSeconds = s }
}

// WithPrecheckActions sets the count pre-check of the timed labels.
func WithPrecheckActions(n int) Option {
	return func(c *Config) { c.PrecheckActions = n }
}

// NewConfig returns the defaults with opts applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		NrActions:       DefaultNrActions,
		NrSeconds:       DefaultNrSeconds,
		PrecheckActions: DefaultPrecheckActions,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate rejects non-positive horizons.
func (c Config) Validate() error {
	if err := checkHorizon(c.NrActions); err != nil {
		return err
	}
	return checkTimeWindow(c.NrSeconds, c.PrecheckActions)
}

// Compute returns every label of every action.
func Compute(actions []model.Action, opts ...Option) ([]model.Labels, error) {
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sequence.Validate(actions); err != nil {
		return nil, err
	}

	scores := countWindow(actions, cfg.NrActions, scoredFor)
	concedes := countWindow(actions, cfg.NrActions, concededBy)
	scoresTimed := timeWindow(actions, cfg.NrSeconds, cfg.PrecheckActions, scoredFor)
	concedesTimed := timeWindow(actions, cfg.NrSeconds, cfg.PrecheckActions, concededBy)

	out := make([]model.Labels, len(actions))
	for i := range actions {
		out[i] = model.Labels{
			Scores:        scores[i],
			Concedes:      concedes[i],
			ScoresTimed:   scoresTimed[i],
			ConcedesTimed: concedesTimed[i],
			GoalFromShot:  actions[i].IsGoal(),
		}
	}
	return out, nil
}
