package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vaep/internal/adapters/repository"
	service "github.com/okian/vaep/internal/app"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/vaep"
	"github.com/okian/vaep/internal/testgames"
	"github.com/okian/vaep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		defer svc.Stop()

		Convey("When it is not started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(svc.Engine(), ShouldBeNil)

			_, err := svc.ProcessGames(context.Background(), nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Get(context.Background(), "g")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When starting and stopping", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["storedGames"], ShouldEqual, 0)
			So(stats["nrActions"], ShouldEqual, labels.DefaultNrActions)

			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given invalid label horizons", t, func() {
		svc := service.New(service.WithLabelOptions(labels.WithNrActions(0)))
		err := svc.Start(context.Background())
		So(errors.Is(err, labels.ErrInvalidHorizon), ShouldBeTrue)
	})
}

func TestService_ProcessGames(t *testing.T) {
	Convey("Given a started service with a small queue", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(3), service.WithQueueSize(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		gen := testgames.New(testgames.WithSeed(4))

		Convey("When a batch larger than the queue is processed", func() {
			games := make([]model.Game, 12)
			for i := range games {
				games[i] = gen.RatedGame("", 150)
			}
			results, err := svc.ProcessGames(ctx, games)
			So(err, ShouldBeNil)

			Convey("Then results come back in input order and match direct calls", func() {
				engine, err := vaep.New()
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, len(games))
				for i := range games {
					want, err := engine.Rate(ctx, games[i])
					So(err, ShouldBeNil)
					So(results[i], ShouldResemble, want)
				}
			})

			Convey("Then every game is stored", func() {
				for i := range games {
					got, err := svc.Get(ctx, games[i].ID)
					So(err, ShouldBeNil)
					So(got, ShouldResemble, results[i])
				}
				So(svc.GetStats()["storedGames"], ShouldEqual, len(games))
			})
		})

		Convey("When one game of the batch is invalid", func() {
			games := []model.Game{gen.RatedGame("ok", 20), gen.RatedGame("bad", 20)}
			games[1].Probabilities = games[1].Probabilities[:10]

			_, err := svc.ProcessGames(ctx, games)

			Convey("Then the whole batch fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "bad")
			})

			Convey("Then the game ids are released", func() {
				games[1].Probabilities = nil
				_, err := svc.ProcessGames(ctx, games)
				So(err, ShouldBeNil)
			})
		})

		Convey("When a batch names the same game twice", func() {
			g := gen.Game("twice", 10)
			_, err := svc.ProcessGames(ctx, []model.Game{g, g})
			So(errors.Is(err, service.ErrGameInFlight), ShouldBeTrue)
		})

		Convey("When a single game is rated", func() {
			res, err := svc.Rate(ctx, gen.Game("single", 30))
			So(err, ShouldBeNil)
			So(res.GameID, ShouldEqual, "single")
			So(res.Labels, ShouldHaveLength, 30)
			So(res.Values, ShouldBeNil)
		})

		Convey("When an unknown game is fetched", func() {
			_, err := svc.Get(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_MaxStoredGames(t *testing.T) {
	Convey("Given a service keeping at most two games in memory", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithMaxStoredGames(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		gen := testgames.New(testgames.WithSeed(9))
		for _, id := range []string{"first", "second", "third"} {
			_, err := svc.Rate(ctx, gen.Game(id, 20))
			So(err, ShouldBeNil)
		}

		Convey("Then the oldest game is evicted", func() {
			_, err := svc.Get(ctx, "first")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Get(ctx, "third")
			So(err, ShouldBeNil)
			So(svc.GetStats()["storedGames"], ShouldEqual, 2)
		})
	})
}

func TestService_SQLiteResults(t *testing.T) {
	Convey("Given a service storing results in SQLite", t, func() {
		ctx := context.Background()
		dsn := filepath.Join(t.TempDir(), "results.db")
		svc := service.New(service.WithWorkerCount(2), service.WithResultsDSN(dsn))
		So(svc.Start(ctx), ShouldBeNil)

		res, err := svc.Rate(ctx, testgames.New().RatedGame("persisted", 40))
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("Then results survive a restart", func() {
			store, err := repository.Open(ctx, dsn)
			So(err, ShouldBeNil)
			defer store.Close()
			got, err := store.Get(ctx, "persisted")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, res)
		})
	})
}
