// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

// ChallengeDependencies defines the interface for challenge operations.
type ChallengeDependencies interface {
	CreateChallenge(ctx context.Context, challengerID, opponentID string) (model.Challenge, error)
	GetChallenge(ctx context.Context, id string) (model.Challenge, error)
	ListChallenges(ctx context.Context, playerID string, limit int) ([]model.Challenge, error)
	SubmitChallengeScore(ctx context.Context, challengeID, playerID string, score int) (model.Challenge, error)
}

// ChallengesHandler handles PVP challenge requests.
type ChallengesHandler struct {
	deps ChallengeDependencies
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps ChallengeDependencies) *ChallengesHandler {
	return &ChallengesHandler{deps: deps}
}

type challengeRequest struct {
	ChallengerID string `json:"challenger_id"`
	OpponentID   string `json:"opponent_id"`
}

func (req challengeRequest) validate() error {
	switch {
	case strings.TrimSpace(req.ChallengerID) == "":
		return errors.New("missing challenger_id")
	case strings.TrimSpace(req.OpponentID) == "":
		return errors.New("missing opponent_id")
	case req.ChallengerID == req.OpponentID:
		return errors.New("cannot challenge yourself")
	}
	return nil
}

type challengeScoreRequest struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

func (req challengeScoreRequest) validate() error {
	switch {
	case strings.TrimSpace(req.PlayerID) == "":
		return errors.New("missing player_id")
	case req.Score < 0:
		return errors.New("score must not be negative")
	}
	return nil
}

type challengeView struct {
	ID              string    `json:"id"`
	ChallengerID    string    `json:"challenger_id"`
	OpponentID      string    `json:"opponent_id"`
	Status          string    `json:"status"`
	ChallengerScore *int      `json:"challenger_score,omitempty"`
	OpponentScore   *int      `json:"opponent_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toChallengeView(c model.Challenge) challengeView {
	return challengeView{
		ID:              c.ID,
		ChallengerID:    c.ChallengerID,
		OpponentID:      c.OpponentID,
		Status:          c.Status,
		ChallengerScore: c.ChallengerScore,
		OpponentScore:   c.OpponentScore,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// HandlePostChallenge handles POST /challenges and GET /challenges?player_id=.
func (h *ChallengesHandler) HandlePostChallenge(w http.ResponseWriter, r *http.Request) {
	const op = "api.challenges"

	switch r.Method {
	case http.MethodPost:
		var req challengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		c, err := h.deps.CreateChallenge(r.Context(), req.ChallengerID, req.OpponentID)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusCreated, toChallengeView(c))
	case http.MethodGet:
		playerID := r.URL.Query().Get("player_id")
		if playerID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		list, err := h.deps.ListChallenges(r.Context(), playerID, 0)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		views := make([]challengeView, 0, len(list))
		for _, c := range list {
			views = append(views, toChallengeView(c))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		http.NotFound(w, r)
	}
}

// HandleChallenge handles requests addressing a single challenge:
//
//	GET  /challenges/{id}        fetch
//	POST /challenges/{id}/score  record one side's click count
func (h *ChallengesHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	const op = "api.challenge"

	path := strings.TrimPrefix(r.URL.Path, "/challenges/")
	challengeID, rest, _ := strings.Cut(path, "/")
	if challengeID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		c, err := h.deps.GetChallenge(r.Context(), challengeID)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toChallengeView(c))
	case rest == "score" && r.Method == http.MethodPost:
		var req challengeScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		c, err := h.deps.SubmitChallengeScore(r.Context(), challengeID, req.PlayerID, req.Score)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toChallengeView(c))
	default:
		http.NotFound(w, r)
	}
}
