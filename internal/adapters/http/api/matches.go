// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

// MatchHistoryDependencies defines the interface for match history reads.
type MatchHistoryDependencies interface {
	RecentMatches(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error)
}

// MatchesHandler handles match history requests.
type MatchesHandler struct {
	deps MatchHistoryDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchHistoryDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

type matchView struct {
	ID            string    `json:"id"`
	PlayerID      string    `json:"player_id"`
	PlayerScore   int       `json:"player_score"`
	OpponentID    string    `json:"opponent_id"`
	OpponentName  string    `json:"opponent_name"`
	OpponentScore int       `json:"opponent_score"`
	WinnerID      string    `json:"winner_id"`
	Reward        int64     `json:"reward"`
	CreatedAt     time.Time `json:"created_at"`
}

// HandleListMatches handles GET /matches?player_id=ID&limit=N requests.
func (h *MatchesHandler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_matches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	records, err := h.deps.RecentMatches(r.Context(), playerID, limit)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	views := make([]matchView, 0, len(records))
	for _, m := range records {
		views = append(views, matchView{
			ID:            m.ID,
			PlayerID:      m.PlayerID,
			PlayerScore:   m.PlayerScore,
			OpponentID:    m.OpponentID,
			OpponentName:  m.OpponentName,
			OpponentScore: m.OpponentScore,
			WinnerID:      m.WinnerID,
			Reward:        m.Reward,
			CreatedAt:     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
