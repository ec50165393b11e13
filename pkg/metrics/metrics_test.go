package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are applied", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "vaep")
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithHTTPBuckets([]float64{0.01, 0.1}),
				WithRefreshInterval(5*time.Second),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then they are honoured", func() {
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "sub")
				So(m.latencyBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.httpBuckets, ShouldResemble, []float64{0.01, 0.1})
				So(m.RefreshInterval(), ShouldEqual, 5*time.Second)
			})
		})

		Convey("When empty values are given", func() {
			m := NewManager(WithNamespace(""), WithRefreshInterval(0), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then the defaults stay", func() {
				So(m.namespace, ShouldEqual, "vaep")
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		Convey("When games are rated and rejected", func() {
			m.RecordGameRated(100, true, 0.4)
			m.RecordGameRated(50, false, 0.2)
			m.RecordGameFailed("missing_team")

			Convey("Then the engine counters follow", func() {
				So(testutil.ToFloat64(m.gamesProcessed), ShouldEqual, 2)
				So(testutil.ToFloat64(m.actionsLabeled), ShouldEqual, 150)
				So(testutil.ToFloat64(m.actionsValued), ShouldEqual, 100)
				So(testutil.ToFloat64(m.gamesFailed), ShouldEqual, 1)
				So(testutil.ToFloat64(m.validationErrors.WithLabelValues("missing_team")), ShouldEqual, 1)
			})
		})

		Convey("When the queue is updated", func() {
			m.UpdateQueue(25, 100)
			m.RecordQueueEnqueue()
			m.RecordQueueDequeue()
			m.RecordQueueEnqueueError()

			Convey("Then utilization is derived", func() {
				So(testutil.ToFloat64(m.queueUtilization), ShouldEqual, 0.25)
				So(testutil.ToFloat64(m.queueEnqueueErrors), ShouldEqual, 1)
			})
		})

		Convey("When workers report", func() {
			m.UpdateWorkerCount(4)
			m.WorkerBusy(1)
			m.WorkerBusy(1)
			m.WorkerBusy(-1)
			m.RecordWorkerProcessing(3, true)

			Convey("Then the gauges track them", func() {
				So(testutil.ToFloat64(m.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(m.workerActiveCount), ShouldEqual, 1)
				So(testutil.ToFloat64(m.workerErrors), ShouldEqual, 1)
			})
		})

		Convey("When HTTP requests are recorded", func() {
			m.RecordHTTPRequest("/values", "POST", "200", 0.01)
			m.RecordHTTPError("/values", "POST", "invalid_input")

			Convey("Then they are exposed", func() {
				n, err := testutil.GatherAndCount(reg, "vaep_http_requests_total", "vaep_http_errors_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When the remaining recorders are used", func() {
			So(func() {
				m.RecordStoreWrite(1.5, false)
				m.UpdateStoredGames(3)
				m.UpdateSystem(1<<20, 12, 0.3)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.storedGames), ShouldEqual, 3)
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithDisabled(), WithPrometheusRegistry(prometheus.NewRegistry()))
		m.RecordGameRated(10, true, 1)
		m.UpdateQueue(5, 10)

		So(testutil.ToFloat64(m.gamesProcessed), ShouldEqual, 0)
		So(testutil.ToFloat64(m.queueSize), ShouldEqual, 0)
	})
}

func TestGlobalMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(Default(), ShouldNotBeNil)
		So(GetRegistry(), ShouldNotBeNil)

		Convey("When the package functions are called", func() {
			So(func() {
				RecordGameRated(10, true, 0.1)
				RecordGameFailed("misaligned")
				UpdateQueue(1, 10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				WorkerBusy(1)
				WorkerBusy(-1)
				RecordWorkerProcessing(1, false)
				RecordStoreWrite(1, false)
				UpdateStoredGames(1)
				RecordHTTPRequest("/stats", "GET", "200", 0.001)
				RecordHTTPError("/stats", "GET", "internal")
				UpdateSystem(1024, 3, 0.1)
			}, ShouldNotPanic)

			Convey("Then the custom registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "vaep_engine_games_processed_total")
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given a reconfigured global manager", t, func() {
		before := GetRegistry()
		Init(WithDisabled(), WithRefreshInterval(time.Minute))
		defer Init()

		Convey("Then it is built from the options on a fresh registry", func() {
			So(GetRegistry(), ShouldNotPointTo, before)
			So(Default().Enabled(), ShouldBeFalse)
			So(Default().RefreshInterval(), ShouldEqual, time.Minute)
		})

		Convey("Then package functions record nothing", func() {
			RecordGameRated(10, true, 0.1)
			So(testutil.ToFloat64(Default().gamesProcessed), ShouldEqual, 0)
		})
	})
}
