package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/vaep"
)

// GamesHandler handles label, value and game lookup requests.
type GamesHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies, maxBodyBytes int64) *GamesHandler {
	return &GamesHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePostLabels handles POST /labels requests.
func (h *GamesHandler) HandlePostLabels(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, false)
}

// HandlePostValues handles POST /values requests.
func (h *GamesHandler) HandlePostValues(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, true)
}

// HandleGetGame handles GET /games/{game_id} requests.
func (h *GamesHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("game_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing game_id", ErrBadRequest))
		return
	}
	res, err := h.deps.Get(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (h *GamesHandler) rate(w http.ResponseWriter, r *http.Request, withProbabilities bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	game, err := req.game(withProbabilities)
	if err != nil {
		fail(w, err)
		return
	}

	var res model.GameResult
	if req.Options != nil {
		res, err = h.rateWithOptions(r, game, req.Options)
	} else {
		res, err = h.deps.Rate(r.Context(), game)
	}
	if err != nil {
		fail(w, err)
		return
	}
	resp := toResponse(res)
	if !withProbabilities {
		resp.Values, resp.Summary = nil, nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// rateWithOptions rates the game synchronously with per-request horizons.
// Such results are not stored.
func (h *GamesHandler) rateWithOptions(r *http.Request, game model.Game, o *optionsJSON) (model.GameResult, error) {
	base := labels.NewConfig()
	if eng := h.deps.Engine(); eng != nil {
		base = eng.Config()
	}
	eng, err := vaep.New(vaep.WithLabelOptions(o.labelOptions(base)...))
	if err != nil {
		return model.GameResult{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return eng.Rate(r.Context(), game)
}
