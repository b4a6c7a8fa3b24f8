// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/internal/domain/types"
)

// RoundDependencies defines the interface for duel round operations.
type RoundDependencies interface {
	StartRound(ctx context.Context, playerID, opponentID, challengeID string) (types.RoundView, error)
	GetRound(ctx context.Context, playerID string) (types.RoundView, error)
	Click(ctx context.Context, playerID string) (duel.ClickResult, types.RoundView, error)
	CancelRound(ctx context.Context, playerID string) (bool, error)
}

// RoundsHandler handles duel round requests.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// startRoundRequest mirrors the OpenAPI schema for POST /rounds.
type startRoundRequest struct {
	PlayerID    string `json:"player_id"`
	OpponentID  string `json:"opponent_id,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

func (req startRoundRequest) validate() error {
	if strings.TrimSpace(req.PlayerID) == "" {
		return errors.New("missing player_id")
	}
	return nil
}

type clickResponse struct {
	Started bool            `json:"started"`
	Counted bool            `json:"counted"`
	Round   types.RoundView `json:"round"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// HandleStartRound handles POST /rounds requests.
func (h *RoundsHandler) HandleStartRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	view, err := h.deps.StartRound(r.Context(), req.PlayerID, req.OpponentID, req.ChallengeID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleRound handles requests addressing one player's active round:
//
//	GET    /rounds/{player_id}         current view
//	DELETE /rounds/{player_id}         cancel or discard
//	POST   /rounds/{player_id}/clicks  register a click
func (h *RoundsHandler) HandleRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.round"

	path := strings.TrimPrefix(r.URL.Path, "/rounds/")
	playerID, rest, _ := strings.Cut(path, "/")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch {
	case rest == "clicks" && r.Method == http.MethodPost:
		result, view, err := h.deps.Click(r.Context(), playerID)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, clickResponse{
			Started: result.Started,
			Counted: result.Counted,
			Round:   view,
		})
	case rest == "" && r.Method == http.MethodGet:
		view, err := h.deps.GetRound(r.Context(), playerID)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case rest == "" && r.Method == http.MethodDelete:
		cancelled, err := h.deps.CancelRound(r.Context(), playerID)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
	default:
		http.NotFound(w, r)
	}
}
