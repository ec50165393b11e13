package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/vaep/internal/adapters/repository"
	service "github.com/okian/vaep/internal/app"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/spadl"
	"github.com/okian/vaep/internal/testgames"
	"github.com/okian/vaep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scenarioBody is a three-action game: a home pass, a home goal and an away
// kick-off.
const scenarioBody = `{
  "game_id": "g1",
  "actions": [
    {"original_event_id": "e1", "period_id": 1, "time_seconds": 1, "team_id": "home", "type_name": "pass", "result_name": "success"},
    {"original_event_id": "e2", "period_id": 1, "time_seconds": 4, "team_id": "home", "type_name": "shot", "result_name": "success", "start_x": 95, "start_y": 34},
    {"original_event_id": "e3", "period_id": 1, "time_seconds": 30, "team_id": "away", "type_name": "pass", "result_name": "success"}
  ],
  "probabilities": [
    {"action_id": "e1", "scores_standard": 0.02, "scores_resultfree": 0.02, "concedes_standard": 0.01, "concedes_resultfree": 0.01},
    {"action_id": "e2", "scores_standard": 0.30, "scores_resultfree": 0.10, "concedes_standard": 0.01, "concedes_resultfree": 0.01},
    {"action_id": "e3", "scores_standard": 0.01, "scores_resultfree": 0.01, "concedes_standard": 0.02, "concedes_resultfree": 0.02}
  ]
}`

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "workerCount": 2}
}

func newTestMux(svc *service.Service, opts ...Option) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(svc, stubStats{}, opts...).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

// encodeGame renders a generated game as a request body.
func encodeGame(g model.Game) string {
	req := gameRequest{GameID: g.ID}
	for _, a := range g.Actions {
		req.Actions = append(req.Actions, actionJSON{
			GameID:          a.GameID,
			OriginalEventID: a.OriginalEventID,
			PeriodID:        &a.PeriodID,
			TimeSeconds:     &a.TimeSeconds,
			TeamID:          a.TeamID,
			PlayerID:        a.PlayerID,
			TypeName:        a.Type.String(),
			ResultName:      a.Result.String(),
			BodypartName:    a.Bodypart.String(),
			StartX:          a.StartX,
			StartY:          a.StartY,
		})
	}
	for _, p := range g.Probabilities {
		req.Probabilities = append(req.Probabilities, probabilityJSON(p))
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(req)
	return buf.String()
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a started service behind the API", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(4))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		mux := newTestMux(svc)

		Convey("POST /labels returns one label set per action", func() {
			w := do(mux, http.MethodPost, "/labels", scenarioBody)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")

			resp := decode[gameResponse](w)
			So(resp.GameID, ShouldEqual, "g1")
			So(resp.Labels, ShouldHaveLength, 3)
			So(resp.Labels[0].Scores, ShouldBeTrue)
			So(resp.Labels[1].GoalFromShot, ShouldBeTrue)
			So(resp.Labels[2].Scores, ShouldBeFalse)
			So(resp.Values, ShouldBeNil)
			So(resp.Summary, ShouldBeNil)
		})

		Convey("POST /values returns values and a summary", func() {
			w := do(mux, http.MethodPost, "/values", scenarioBody)
			So(w.Code, ShouldEqual, http.StatusOK)

			resp := decode[gameResponse](w)
			So(resp.Values, ShouldHaveLength, 3)
			// first action is its own reference
			So(resp.Values[0].Offensive, ShouldAlmostEqual, 0.0, 1e-12)
			So(resp.Values[1].Offensive, ShouldAlmostEqual, 0.28, 1e-12)
			// a goal resets the reference of the next action
			So(resp.Values[2].Offensive, ShouldAlmostEqual, 0.01, 1e-12)
			So(resp.Summary, ShouldNotBeNil)
			So(resp.Summary.Teams, ShouldHaveLength, 2)

			Convey("And GET /games/{id} returns the stored result", func() {
				w := do(mux, http.MethodGet, "/games/g1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				got := decode[gameResponse](w)
				So(got.Values, ShouldResemble, resp.Values)
			})
		})

		Convey("POST /values without probabilities is rejected", func() {
			body := strings.Replace(scenarioBody, `"probabilities"`, `"ignored"`, 1)
			w := do(mux, http.MethodPost, "/values", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorResponse](w).Code, ShouldEqual, "bad_request")
		})

		Convey("Per-request options override the horizons", func() {
			body := strings.Replace(scenarioBody, `"game_id": "g1",`, `"game_id": "g1", "options": {"nr_actions": 1},`, 1)
			w := do(mux, http.MethodPost, "/labels", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode[gameResponse](w)
			So(resp.Labels[0].Scores, ShouldBeFalse)
			So(resp.Labels[1].Scores, ShouldBeTrue)

			Convey("And invalid overrides are a bad request", func() {
				body := strings.Replace(scenarioBody, `"game_id": "g1",`, `"game_id": "g1", "options": {"nr_seconds": -1},`, 1)
				w := do(mux, http.MethodPost, "/labels", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("A generated game is rated end to end", func() {
			g := testgames.New(testgames.WithSeed(11)).RatedGame("generated", 120)
			w := do(mux, http.MethodPost, "/values", encodeGame(g))
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode[gameResponse](w)
			So(resp.Labels, ShouldHaveLength, 120)
			So(resp.Values, ShouldHaveLength, 120)
		})

		Convey("Unknown games are 404", func() {
			w := do(mux, http.MethodGet, "/games/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[errorResponse](w).Code, ShouldEqual, "not_found")
		})

		Convey("Malformed bodies are 400", func() {
			w := do(mux, http.MethodPost, "/labels", "{")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Actions breaking the data contract are 400", func() {
			body := strings.Replace(scenarioBody, `"team_id": "away"`, `"team_id": ""`, 1)
			w := do(mux, http.MethodPost, "/labels", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorResponse](w).Code, ShouldEqual, "missing_team")
		})

		Convey("Actions without a timestamp are 400", func() {
			body := strings.Replace(scenarioBody, `"time_seconds": 1, `, ``, 1)
			w := do(mux, http.MethodPost, "/labels", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			resp := decode[errorResponse](w)
			So(resp.Code, ShouldEqual, "bad_request")
			So(resp.Message, ShouldContainSubstring, "actions[0]")
			So(resp.Message, ShouldContainSubstring, "time_seconds")

			Convey("And so are actions without a period", func() {
				body := strings.Replace(scenarioBody, `"period_id": 1, "time_seconds": 30`, `"time_seconds": 30`, 1)
				w := do(mux, http.MethodPost, "/values", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorResponse](w).Message, ShouldContainSubstring, "actions[2]")
			})
		})

		Convey("A game without actions rates to empty labels", func() {
			w := do(mux, http.MethodPost, "/labels", `{"game_id": "empty", "actions": []}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"labels":[]`)
			resp := decode[gameResponse](w)
			So(resp.GameID, ShouldEqual, "empty")
			So(resp.Labels, ShouldBeEmpty)

			Convey("And to empty values", func() {
				w := do(mux, http.MethodPost, "/values", `{"game_id": "empty-values"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[gameResponse](w).Values, ShouldBeEmpty)
			})

			Convey("But it still needs a game_id", func() {
				w := do(mux, http.MethodPost, "/labels", `{"actions": []}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("Unknown vocabulary is 400", func() {
			body := strings.Replace(scenarioBody, `"type_name": "pass"`, `"type_name": "juggle"`, 1)
			w := do(mux, http.MethodPost, "/labels", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorResponse](w).Message, ShouldContainSubstring, "actions[0]")
		})

		Convey("Wrong methods are rejected", func() {
			w := do(mux, http.MethodGet, "/labels", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("GET /stats returns JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]interface{}](w)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("GET /healthz exposes metrics", func() {
			do(mux, http.MethodPost, "/labels", "{")
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "vaep_http_requests_total")
		})
	})
}

func TestServer_BodyLimit(t *testing.T) {
	Convey("Given a server with a tiny body limit", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newTestMux(svc, WithMaxBodyBytes(64))

		Convey("Large bodies are 413", func() {
			w := do(mux, http.MethodPost, "/labels", scenarioBody)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})
}

func TestServer_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		mux := newTestMux(service.New())

		Convey("Rating is unavailable", func() {
			w := do(mux, http.MethodPost, "/labels", scenarioBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Per-request options still work with default horizons", func() {
			body := strings.Replace(scenarioBody, `"game_id": "g1",`, `"game_id": "g1", "options": {},`, 1)
			w := do(mux, http.MethodPost, "/labels", body)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Errors map to statuses", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{fmt.Errorf("%w: x", ErrBadRequest), http.StatusBadRequest},
			{fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound},
			{fmt.Errorf("%w: queue full", service.ErrBusy), http.StatusTooManyRequests},
			{fmt.Errorf("%w: g1", service.ErrGameInFlight), http.StatusConflict},
			{service.ErrNotStarted, http.StatusServiceUnavailable},
			{fmt.Errorf("game g: %w", labels.ErrInvalidWindow), http.StatusBadRequest},
			{spadl.ErrUnknownResult, http.StatusInternalServerError},
			{errors.New("boom"), http.StatusInternalServerError},
			{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		}
		for _, c := range cases {
			status, _ := classify(c.err)
			So(status, ShouldEqual, c.status)
		}
	})

	Convey("Error status codes map to metric types", t, func() {
		So(errorType(http.StatusBadRequest), ShouldEqual, "client_error")
		So(errorType(http.StatusNotFound), ShouldEqual, "not_found")
		So(errorType(http.StatusTooManyRequests), ShouldEqual, "rate_limit")
		So(errorType(http.StatusServiceUnavailable), ShouldEqual, "server_error")
		So(errorType(http.StatusOK), ShouldEqual, "unknown")
	})
}
