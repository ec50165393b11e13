// Package service wires the rating engine, job queue, worker pool and result
// store together behind the operations the HTTP API and CLI need.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/vaep/internal/adapters/mq/queue"
	workerpool "github.com/okian/vaep/internal/adapters/mq/worker"
	"github.com/okian/vaep/internal/adapters/repository"
	"github.com/okian/vaep/internal/domain/dedupe"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/vaep"
	"github.com/okian/vaep/pkg/logger"
	"github.com/okian/vaep/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service rates games on a worker pool and keeps their results.
type Service struct {
	mu sync.RWMutex

	engine   *vaep.Engine
	store    repository.Store
	inFlight dedupe.Deduper
	queue    *jobqueue.InMemoryQueue
	pool     *workerpool.Pool

	workerCount int
	queueSize   int
	resultsDSN  string
	maxStored   int
	labelOpts   []labels.Option
	ownStore    bool

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued games.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLabelOptions sets the label horizons of the engine.
func WithLabelOptions(opts ...labels.Option) Option {
	return func(s *Service) {
		s.labelOpts = append(s.labelOpts, opts...)
	}
}

// WithResultsDSN stores results in SQLite at dsn instead of memory.
func WithResultsDSN(dsn string) Option {
	return func(s *Service) {
		s.resultsDSN = dsn
	}
}

// WithMaxStoredGames bounds the in-memory result store; the oldest game is
// evicted first. Zero keeps every game. Ignored for SQLite.
func WithMaxStoredGames(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxStored = n
		}
	}
}

// WithStore uses store for results. The caller keeps ownership of it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine, opens the store and starts the workers. Invalid
// label horizons are reported here.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	engine, err := vaep.New(vaep.WithLabelOptions(s.labelOpts...))
	if err != nil {
		return err
	}
	s.engine = engine

	if s.store == nil || s.ownStore {
		store, err := repository.Open(ctx, s.resultsDSN, repository.WithMaxGames(s.maxStored))
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		s.store = store
		s.ownStore = true
	}

	s.inFlight = dedupe.NewInMemoryDeduper()
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.store)

	// workers outlive the request that started the service
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	cfg := engine.Config()
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("nr_actions", cfg.NrActions),
		logger.Float64("nr_seconds", cfg.NrSeconds),
		logger.Int("precheck_actions", cfg.PrecheckActions),
		logger.Bool("sqlite", s.resultsDSN != ""),
	)
	return nil
}

// Stop drains queued games and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	if s.ownStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing result store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// Engine returns the engine used by the workers, or nil before Start.
func (s *Service) Engine() *vaep.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Rate rates a single game on the worker pool and waits for the result.
func (s *Service) Rate(ctx context.Context, game model.Game) (model.GameResult, error) {
	res, err := s.ProcessGames(ctx, []model.Game{game})
	if err != nil {
		return model.GameResult{}, err
	}
	return res[0], nil
}

// ProcessGames rates every game in parallel and returns the results in input
// order. The batch fails as a whole if any game fails. When the queue is
// full, submission waits for earlier games of the batch to finish.
func (s *Service) ProcessGames(ctx context.Context, games []model.Game) ([]model.GameResult, error) {
	s.mu.RLock()
	started := s.started
	q, inFlight := s.queue, s.inFlight
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	var recorded []string
	defer func() {
		for _, id := range recorded {
			inFlight.Unrecord(ctx, id)
		}
	}()
	for i := range games {
		id := gameID(&games[i])
		if inFlight.SeenAndRecord(ctx, id) {
			return nil, fmt.Errorf("%w: %s", ErrGameInFlight, id)
		}
		recorded = append(recorded, id)
	}

	replies := make(chan model.Outcome, len(games))
	index := make(map[string]int, len(games))
	results := make([]model.GameResult, len(games))
	var firstErr error
	pending := 0

	collect := func(out model.Outcome) {
		pending--
		if out.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("game %s: %w", out.Result.GameID, out.Err)
		}
		results[index[out.JobID]] = out.Result
	}

	for i := range games {
		job := model.Job{ID: uuid.NewString(), Game: games[i], Reply: replies}
		index[job.ID] = i
		for {
			err := q.Enqueue(ctx, job)
			if err == nil {
				pending++
				break
			}
			if !errors.Is(err, jobqueue.ErrQueueFull) || pending == 0 {
				if errors.Is(err, jobqueue.ErrQueueFull) {
					err = fmt.Errorf("%w: %w", ErrBusy, err)
				}
				s.drain(ctx, replies, pending)
				return nil, err
			}
			select {
			case out := <-replies:
				collect(out)
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	for pending > 0 {
		select {
		case out := <-replies:
			collect(out)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// drain waits for already submitted games so their ids are not released
// while they are still being rated.
func (s *Service) drain(ctx context.Context, replies <-chan model.Outcome, pending int) {
	for ; pending > 0; pending-- {
		select {
		case <-replies:
		case <-ctx.Done():
			return
		}
	}
}

func gameID(g *model.Game) string {
	if g.ID == "" && len(g.Actions) > 0 {
		return g.Actions[0].GameID
	}
	return g.ID
}

// Get returns the stored result of a game.
func (s *Service) Get(ctx context.Context, gameID string) (model.GameResult, error) {
	s.mu.RLock()
	store := s.store
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.GameResult{}, ErrNotStarted
	}
	return store.Get(ctx, gameID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["inFlight"] = s.inFlight.Size()
	cfg := s.engine.Config()
	stats["nrActions"] = cfg.NrActions
	stats["nrSeconds"] = cfg.NrSeconds
	stats["precheckActions"] = cfg.PrecheckActions
	if n, err := s.store.Count(ctx); err == nil {
		stats["storedGames"] = n
		metrics.UpdateStoredGames(n)
	}
	metrics.UpdateQueue(queueLen, s.queueSize)
	return stats
}
