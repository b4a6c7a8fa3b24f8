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

// SessionDependencies defines the interface for timer session operations.
type SessionDependencies interface {
	// RecordSession stores a completed session. The bool result reports
	// whether the submission was a duplicate.
	RecordSession(ctx context.Context, sessionID, playerID string, startedAt time.Time, durationSeconds int) (model.Session, bool, error)
	SessionStats(ctx context.Context, playerID string) (model.SessionStats, error)
}

// SessionsHandler handles timer session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// sessionRequest mirrors the OpenAPI schema for POST /sessions.
type sessionRequest struct {
	SessionID       string `json:"session_id"`
	PlayerID        string `json:"player_id"`
	StartedAt       string `json:"started_at"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (req sessionRequest) validate() error {
	switch {
	case strings.TrimSpace(req.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(req.PlayerID) == "":
		return errors.New("missing player_id")
	case strings.TrimSpace(req.StartedAt) == "":
		return errors.New("missing started_at")
	case req.DurationSeconds <= 0:
		return errors.New("duration_seconds must be positive")
	}
	if _, err := time.Parse(time.RFC3339, req.StartedAt); err != nil {
		return errors.New("invalid started_at; must be RFC3339")
	}
	return nil
}

type sessionStatsResponse struct {
	PlayerID           string `json:"player_id"`
	Sessions           int    `json:"sessions"`
	TotalSeconds       int64  `json:"total_seconds"`
	TotalEarningsCents int64  `json:"total_earnings_cents"`
	TotalKakiAwarded   int64  `json:"total_kaki_awarded"`
}

type sessionResponse struct {
	SessionID     string `json:"session_id"`
	EarningsCents int64  `json:"earnings_cents"`
	KakiAwarded   int64  `json:"kaki_awarded"`
	Duplicate     bool   `json:"duplicate"`
}

// HandlePostSession handles POST /sessions requests.
func (h *SessionsHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	startedAt, _ := time.Parse(time.RFC3339, req.StartedAt)
	sess, duplicate, err := h.deps.RecordSession(r.Context(), req.SessionID, req.PlayerID, startedAt, req.DurationSeconds)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, sessionResponse{
		SessionID:     sess.ID,
		EarningsCents: sess.EarningsCents,
		KakiAwarded:   sess.KakiAwarded,
		Duplicate:     duplicate,
	})
}

// HandleSessionStats handles GET /sessions/{player_id}/stats requests.
func (h *SessionsHandler) HandleSessionStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	playerID, rest, _ := strings.Cut(path, "/")
	if playerID == "" || rest != "stats" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	stats, err := h.deps.SessionStats(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionStatsResponse{
		PlayerID:           stats.PlayerID,
		Sessions:           stats.Sessions,
		TotalSeconds:       stats.TotalSeconds,
		TotalEarningsCents: stats.TotalEarningsCents,
		TotalKakiAwarded:   stats.TotalKakiAwarded,
	})
}
