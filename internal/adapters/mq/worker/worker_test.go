package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/vaep/internal/adapters/mq/queue"
	worker "github.com/okian/vaep/internal/adapters/mq/worker"
	model "github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
	"github.com/okian/vaep/internal/domain/vaep"
	"github.com/okian/vaep/internal/testgames"
	logging "github.com/okian/vaep/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockStore struct {
	mu      sync.Mutex
	results map[string]model.GameResult
	err     error
}

func newMockStore() *mockStore {
	return &mockStore{results: make(map[string]model.GameResult)}
}

func (ms *mockStore) Put(_ context.Context, res model.GameResult) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	ms.results[res.GameID] = res
	return nil
}

func (ms *mockStore) setErr(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.err = err
}

func (ms *mockStore) get(id string) (model.GameResult, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	r, ok := ms.results[id]
	return r, ok
}

func await(t *testing.T, ch <-chan model.Outcome) model.Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from worker")
		return model.Outcome{}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a real engine", t, func() {
		_ = logging.Init()

		engine, err := vaep.New()
		convey.So(err, convey.ShouldBeNil)
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		store := newMockStore()
		w := worker.NewInMemoryWorker(q, engine, store, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		gen := testgames.New(testgames.WithSeed(1))

		convey.Convey("When a rated game is queued", func() {
			g := gen.RatedGame("w1", 120)
			reply := make(chan model.Outcome, 1)
			convey.So(q.Enqueue(ctx, model.Job{ID: "job-1", Game: g, Reply: reply}), convey.ShouldBeNil)
			out := await(t, reply)

			convey.Convey("Then the result is replied and stored", func() {
				convey.So(out.Err, convey.ShouldBeNil)
				convey.So(out.JobID, convey.ShouldEqual, "job-1")
				convey.So(out.Result.Values, convey.ShouldHaveLength, 120)

				stored, ok := store.get("w1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(stored, convey.ShouldResemble, out.Result)
			})
		})

		convey.Convey("When an invalid game is queued", func() {
			g := gen.Game("w2", 10)
			g.Actions[3].TeamID = ""
			reply := make(chan model.Outcome, 1)
			convey.So(q.Enqueue(ctx, model.Job{ID: "job-2", Game: g, Reply: reply}), convey.ShouldBeNil)
			out := await(t, reply)

			convey.Convey("Then the error is replied and nothing stored", func() {
				convey.So(errors.Is(out.Err, model.ErrMissingTeam), convey.ShouldBeTrue)
				convey.So(out.Result.GameID, convey.ShouldEqual, "w2")
				convey.So(out.Result.Labels, convey.ShouldBeNil)
				_, ok := store.get("w2")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the store fails", func() {
			store.setErr(errors.New("disk full"))
			reply := make(chan model.Outcome, 1)
			convey.So(q.Enqueue(ctx, model.Job{ID: "job-3", Game: gen.Game("w3", 5), Reply: reply}), convey.ShouldBeNil)
			out := await(t, reply)

			convey.So(out.Err, convey.ShouldNotBeNil)
			convey.So(out.Err.Error(), convey.ShouldContainSubstring, "disk full")
		})

		convey.Convey("When a job has no reply channel", func() {
			convey.So(q.Enqueue(ctx, model.Job{ID: "job-4", Game: gen.Game("w4", 5)}), convey.ShouldBeNil)

			convey.Convey("Then it is still processed", func() {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if _, ok := store.get("w4"); ok {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				_, ok := store.get("w4")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		_ = logging.Init()

		engine, err := vaep.New()
		convey.So(err, convey.ShouldBeNil)
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		store := newMockStore()
		pool := worker.NewPool(4, q, engine, store)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When many games are queued", func() {
			gen := testgames.New(testgames.WithSeed(2))
			reply := make(chan model.Outcome, 32)
			games := make(map[string]model.Game)
			for i := 0; i < 32; i++ {
				g := gen.RatedGame("", 80)
				games[g.ID] = g
				convey.So(q.Enqueue(ctx, model.Job{ID: g.ID, Game: g, Reply: reply}), convey.ShouldBeNil)
			}

			convey.Convey("Then every game matches a direct engine call", func() {
				for i := 0; i < 32; i++ {
					out := await(t, reply)
					convey.So(out.Err, convey.ShouldBeNil)
					want, err := engine.Rate(ctx, games[out.JobID])
					convey.So(err, convey.ShouldBeNil)
					convey.So(out.Result, convey.ShouldResemble, want)
				}
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down idle", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logging.Init()
		engine, _ := vaep.New()
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), engine, nil)
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func TestErrorKind(t *testing.T) {
	convey.Convey("Given errors of each family", t, func() {
		convey.So(worker.ErrorKind(nil), convey.ShouldEqual, "")
		convey.So(worker.ErrorKind(model.ErrMissingTeam), convey.ShouldEqual, "missing_team")
		convey.So(worker.ErrorKind(model.ErrInvalidTime), convey.ShouldEqual, "invalid_action")
		convey.So(worker.ErrorKind(sequence.ErrLengthMismatch), convey.ShouldEqual, "misaligned")
		convey.So(worker.ErrorKind(sequence.ErrMixedGames), convey.ShouldEqual, "mixed_games")
		convey.So(worker.ErrorKind(context.Canceled), convey.ShouldEqual, "cancelled")
		convey.So(worker.ErrorKind(worker.ErrStopped), convey.ShouldEqual, "stopped")
		convey.So(worker.ErrorKind(errors.New("x")), convey.ShouldEqual, "internal")
	})
}
