package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/pkg/metrics"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS games (
	game_id  TEXT PRIMARY KEY,
	valued   INTEGER NOT NULL,
	summary  TEXT,
	rated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS action_labels (
	game_id        TEXT NOT NULL REFERENCES games(game_id),
	action_index   INTEGER NOT NULL,
	scores         INTEGER NOT NULL,
	concedes       INTEGER NOT NULL,
	scores_timed   INTEGER NOT NULL,
	concedes_timed INTEGER NOT NULL,
	goal_from_shot INTEGER NOT NULL,
	PRIMARY KEY (game_id, action_index)
);

CREATE TABLE IF NOT EXISTS action_values (
	game_id         TEXT NOT NULL REFERENCES games(game_id),
	action_index    INTEGER NOT NULL,
	offensive_value REAL NOT NULL,
	defensive_value REAL NOT NULL,
	vaep_value      REAL NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put replaces the stored result of res.GameID in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, res model.GameResult) (err error) {
	if res.GameID == "" {
		return ErrInvalidGame
	}

	var summary sql.NullString
	if res.Summary != nil {
		b, err := json.Marshal(res.Summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summary = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		`DELETE FROM action_labels WHERE game_id = ?`,
		`DELETE FROM action_values WHERE game_id = ?`,
		`DELETE FROM games WHERE game_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, q, res.GameID); err != nil {
			return eris.Wrapf(err, "sqlite: replace game %s", res.GameID)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO games (game_id, valued, summary, rated_at) VALUES (?, ?, ?, ?)`,
		res.GameID, res.Values != nil, summary, time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert game %s", res.GameID)
	}

	if err = insertLabels(ctx, tx, res.GameID, res.Labels); err != nil {
		return err
	}
	if err = insertValues(ctx, tx, res.GameID, res.Values); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	if n, cerr := s.Count(ctx); cerr == nil {
		metrics.UpdateStoredGames(n)
	}
	return nil
}

func insertLabels(ctx context.Context, tx *sql.Tx, gameID string, lbls []model.Labels) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO action_labels
		(game_id, action_index, scores, concedes, scores_timed, concedes_timed, goal_from_shot)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare labels")
	}
	defer stmt.Close()

	for i, l := range lbls {
		if _, err := stmt.ExecContext(ctx, gameID, i, l.Scores, l.Concedes, l.ScoresTimed, l.ConcedesTimed, l.GoalFromShot); err != nil {
			return eris.Wrapf(err, "sqlite: insert labels %s/%d", gameID, i)
		}
	}
	return nil
}

func insertValues(ctx context.Context, tx *sql.Tx, gameID string, values []model.Values) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO action_values
		(game_id, action_index, offensive_value, defensive_value, vaep_value)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare values")
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, gameID, i, v.Offensive, v.Defensive, v.VAEP); err != nil {
			return eris.Wrapf(err, "sqlite: insert values %s/%d", gameID, i)
		}
	}
	return nil
}

// Get loads a stored game.
func (s *SQLiteStore) Get(ctx context.Context, gameID string) (model.GameResult, error) {
	var (
		valued  bool
		summary sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT valued, summary FROM games WHERE game_id = ?`, gameID,
	).Scan(&valued, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GameResult{}, ErrNotFound
	}
	if err != nil {
		return model.GameResult{}, eris.Wrapf(err, "sqlite: get game %s", gameID)
	}

	res := model.GameResult{GameID: gameID}
	if summary.Valid {
		res.Summary = &model.Summary{}
		if err := json.Unmarshal([]byte(summary.String), res.Summary); err != nil {
			return model.GameResult{}, eris.Wrapf(err, "sqlite: decode summary %s", gameID)
		}
	}

	if res.Labels, err = s.labels(ctx, gameID); err != nil {
		return model.GameResult{}, err
	}
	if valued {
		if res.Values, err = s.values(ctx, gameID); err != nil {
			return model.GameResult{}, err
		}
	}
	return res, nil
}

func (s *SQLiteStore) labels(ctx context.Context, gameID string) ([]model.Labels, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT scores, concedes, scores_timed, concedes_timed, goal_from_shot
		FROM action_labels WHERE game_id = ? ORDER BY action_index`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query labels %s", gameID)
	}
	defer rows.Close()

	out := []model.Labels{}
	for rows.Next() {
		var l model.Labels
		if err := rows.Scan(&l.Scores, &l.Concedes, &l.ScoresTimed, &l.ConcedesTimed, &l.GoalFromShot); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan labels")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: labels iterate")
}

func (s *SQLiteStore) values(ctx context.Context, gameID string) ([]model.Values, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT offensive_value, defensive_value, vaep_value
		FROM action_values WHERE game_id = ? ORDER BY action_index`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query values %s", gameID)
	}
	defer rows.Close()

	out := []model.Values{}
	for rows.Next() {
		var v model.Values
		if err := rows.Scan(&v.Offensive, &v.Defensive, &v.VAEP); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan values")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: values iterate")
}

// Count returns the number of stored games.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count games")
	}
	return n, nil
}
