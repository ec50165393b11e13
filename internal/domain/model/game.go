package model

// Game is the action sequence of a single game, optionally with the
// probability estimates aligned to it.
type Game struct {
	ID            string
	Actions       []Action
	Probabilities []Probabilities // nil when only labels are requested
}

// Rating aggregates action values of one player or team within a game.
type Rating struct {
	ID        string  `json:"id"`
	TeamID    string  `json:"team_id,omitempty"`
	Actions   int     `json:"actions"`
	Offensive float64 `json:"offensive_value"`
	Defensive float64 `json:"defensive_value"`
	VAEP      float64 `json:"vaep_value"`
}

// Summary holds per-player and per-team ratings of a game.
type Summary struct {
	Players []Rating `json:"players"`
	Teams   []Rating `json:"teams"`
}

// GameResult is everything computed for one game.
type GameResult struct {
	GameID  string
	Labels  []Labels
	Values  []Values // nil when the game carried no probabilities
	Summary *Summary
}

// Outcome is the reply a worker sends back for a job.
type Outcome struct {
	JobID  string
	Result GameResult
	Err    error
}

// Job asks a worker to rate one game.
type Job struct {
	ID    string
	Game  Game
	Reply chan<- Outcome // optional; buffered by the submitter
}
