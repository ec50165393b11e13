// Package worker runs the rating engine over queued games.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/vaep/internal/adapters/mq/queue"
	"github.com/okian/vaep/internal/domain/formula"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
	"github.com/okian/vaep/pkg/logger"
	"github.com/okian/vaep/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Rater rates one game.
type Rater interface {
	Rate(ctx context.Context, game model.Game) (model.GameResult, error)
}

// Store persists a rated game.
type Store interface {
	Put(ctx context.Context, res model.GameResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue is closed or it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker. Jobs it has not started are answered
	// with ErrStopped.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	rater Rater
	store Store // optional
	name  string

	shutdown chan struct{}
	done     chan struct{}
	stopOnce atomic.Bool

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker. store may be nil, in which case
// results only go to the job's reply channel.
func NewInMemoryWorker(q Queue, rater Rater, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		rater:    rater,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.reject(ctx, jobs)
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, job)
		}
	}
}

// reject answers every job still buffered so submitters do not wait forever.
func (w *InMemoryWorker) reject(ctx context.Context, jobs <-chan Job) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			reply(job, model.Outcome{JobID: job.ID, Result: model.GameResult{GameID: job.Game.ID}, Err: ErrStopped})
		default:
			return
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	if w.stopOnce.CompareAndSwap(false, true) {
		close(w.shutdown)
	}
}

// process rates one game, stores the result and answers the submitter.
func (w *InMemoryWorker) process(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.WorkerBusy(1)
	defer metrics.WorkerBusy(-1)

	out := model.Outcome{JobID: job.ID}
	out.Result, out.Err = w.rater.Rate(ctx, job.Game)
	rated := time.Since(start)

	switch {
	case out.Err != nil:
		metrics.RecordGameFailed(ErrorKind(out.Err))
		w.logger.Warn(ctx, "game rejected",
			logger.String("job_id", job.ID),
			logger.String("game_id", job.Game.ID),
			logger.Error(out.Err),
		)
		out.Result = model.GameResult{GameID: job.Game.ID}
	default:
		metrics.RecordGameRated(len(job.Game.Actions), out.Result.Values != nil, float64(rated.Microseconds())/1e3)
		if w.store != nil {
			out.Err = w.save(ctx, out.Result)
		}
	}

	metrics.RecordWorkerProcessing(float64(time.Since(start).Microseconds())/1e3, out.Err != nil)
	w.logger.Debug(ctx, "job done",
		logger.String("job_id", job.ID),
		logger.String("game_id", out.Result.GameID),
		logger.Int("actions", len(job.Game.Actions)),
		logger.Duration("took", time.Since(start)),
	)
	reply(job, out)
}

func (w *InMemoryWorker) save(ctx context.Context, res model.GameResult) error {
	start := time.Now()
	err := w.store.Put(ctx, res)
	metrics.RecordStoreWrite(float64(time.Since(start).Microseconds())/1e3, err != nil)
	if err != nil {
		w.logger.Error(ctx, "storing result failed", logger.String("game_id", res.GameID), logger.Error(err))
		return fmt.Errorf("store game %s: %w", res.GameID, err)
	}
	return nil
}

// reply never blocks: submitters buffer the reply channel, and a job whose
// submitter went away is dropped.
func reply(job Job, out model.Outcome) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if job.Reply == nil {
		return
	}
	select {
	case job.Reply <- out:
	default:
	}
}

// ErrorKind maps an error to a short label for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrMissingTeam):
		return "missing_team"
	case errors.Is(err, model.ErrInvalidPeriod), errors.Is(err, model.ErrInvalidTime),
		errors.Is(err, model.ErrInvalidType), errors.Is(err, model.ErrInvalidResult):
		return "invalid_action"
	case errors.Is(err, model.ErrInvalidProbability):
		return "invalid_probability"
	case errors.Is(err, sequence.ErrMixedGames), errors.Is(err, sequence.ErrInterleavedGames):
		return "mixed_games"
	case errors.Is(err, sequence.ErrLengthMismatch), errors.Is(err, formula.ErrMisaligned):
		return "misaligned"
	case errors.Is(err, labels.ErrInvalidHorizon), errors.Is(err, labels.ErrInvalidWindow):
		return "invalid_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrStopped):
		return "stopped"
	default:
		return "internal"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below one means one
// worker per CPU.
func NewPool(workerCount int, q Queue, rater Rater, store Store) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, rater, store, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue, lets the workers finish the jobs already queued
// and waits for them, bounded by ctx and poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		// stop whoever is still draining and answer their jobs
		for _, worker := range p.workers {
			worker.stop()
		}
		return fmt.Errorf("worker pool: %w", shutdownCtx.Err())
	}
	return nil
}
