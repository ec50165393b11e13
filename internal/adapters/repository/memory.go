package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// MemoryStore keeps results in a map. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]model.GameResult
	order []string // insertion order, used for eviction

	maxGames              int
	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	stopOnce              sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its metrics updater, which
// runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		games:                 make(map[string]model.GameResult),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.startMetricsUpdater(ctx)
	return s
}

// Put stores a copy of res.
func (s *MemoryStore) Put(ctx context.Context, res model.GameResult) error {
	if res.GameID == "" {
		return ErrInvalidGame
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[res.GameID]; !ok {
		s.order = append(s.order, res.GameID)
	}
	s.games[res.GameID] = clone(res)

	if s.maxGames > 0 {
		for len(s.order) > s.maxGames {
			delete(s.games, s.order[0])
			s.order = s.order[1:]
		}
	}
	return nil
}

// Get returns a copy of the stored result of gameID.
func (s *MemoryStore) Get(_ context.Context, gameID string) (model.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.games[gameID]
	if !ok {
		return model.GameResult{}, ErrNotFound
	}
	return clone(res), nil
}

// Count returns the number of stored games.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games), nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			n, _ := s.Count(ctx)
			metrics.UpdateStoredGames(n)
		}
	}
}
