// Package repository stores rated games so they can be fetched again by id.
package repository

import (
	"context"
	"slices"

	"github.com/okian/vaep/internal/domain/model"
)

// Store provides read/write access to rated games. A game is stored as a
// whole; writing a game again replaces the previous result.
type Store interface {
	// Put stores the result of one game.
	Put(ctx context.Context, res model.GameResult) error

	// Get returns the last stored result of a game.
	// Returns ErrNotFound if the game is unknown.
	Get(ctx context.Context, gameID string) (model.GameResult, error)

	// Count returns the number of stored games.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Open returns a SQLiteStore for a non-empty dsn and a MemoryStore built
// with opts otherwise.
func Open(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(ctx, opts...), nil
	}
	s, err := NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// clone copies every slice so stored results never alias caller memory.
func clone(res model.GameResult) model.GameResult {
	out := model.GameResult{
		GameID: res.GameID,
		Labels: slices.Clone(res.Labels),
		Values: slices.Clone(res.Values),
	}
	if res.Summary != nil {
		out.Summary = &model.Summary{
			Players: slices.Clone(res.Summary.Players),
			Teams:   slices.Clone(res.Summary.Teams),
		}
	}
	return out
}
