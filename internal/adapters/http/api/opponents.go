// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wctimer/server/internal/domain/model"
)

// OpponentDependencies defines the interface for directory lookups.
type OpponentDependencies interface {
	Opponents(ctx context.Context, excludeID string, limit int) ([]model.Opponent, error)
}

// OpponentsHandler handles opponent directory requests.
type OpponentsHandler struct {
	deps OpponentDependencies
}

// NewOpponentsHandler creates a new opponents handler.
func NewOpponentsHandler(deps OpponentDependencies) *OpponentsHandler {
	return &OpponentsHandler{deps: deps}
}

type opponentView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Placeholder bool   `json:"placeholder"`
}

// HandleListOpponents handles GET /opponents?exclude=ID&limit=N requests.
func (h *OpponentsHandler) HandleListOpponents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_opponents"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	exclude := r.URL.Query().Get("exclude")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	opponents, err := h.deps.Opponents(r.Context(), exclude, limit)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	views := make([]opponentView, 0, len(opponents))
	for _, o := range opponents {
		views = append(views, opponentView{ID: o.ID, DisplayName: o.DisplayName, Placeholder: o.Placeholder})
	}
	writeJSON(w, http.StatusOK, views)
}
