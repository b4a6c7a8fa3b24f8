// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wctimer/server/internal/adapters/repository"
	"github.com/wctimer/server/internal/adapters/storage"
	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/internal/domain/types"
)

// Dependencies is the full surface HTTP handlers need. Using an interface
// bundle keeps the handler layer loosely coupled to the app service.
type Dependencies interface {
	RoundDependencies
	SessionDependencies
	LeaderboardDependencies
	RankDependencies
	OpponentDependencies
	ChallengeDependencies
	ProfileDependencies
	MatchHistoryDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	roundsHandler      *RoundsHandler
	sessionsHandler    *SessionsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	opponentsHandler   *OpponentsHandler
	challengesHandler  *ChallengesHandler
	profilesHandler    *ProfilesHandler
	matchesHandler     *MatchesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		roundsHandler:      NewRoundsHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
		opponentsHandler:   NewOpponentsHandler(deps),
		challengesHandler:  NewChallengesHandler(deps),
		profilesHandler:    NewProfilesHandler(deps),
		matchesHandler:     NewMatchesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rounds", MetricsMiddleware(s.roundsHandler.HandleStartRound, "rounds"))
	mux.HandleFunc("/rounds/", MetricsMiddleware(s.roundsHandler.HandleRound, "rounds"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSession, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSessionStats, "session_stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/opponents", MetricsMiddleware(s.opponentsHandler.HandleListOpponents, "opponents"))
	mux.HandleFunc("/challenges", MetricsMiddleware(s.challengesHandler.HandlePostChallenge, "challenges"))
	mux.HandleFunc("/challenges/", MetricsMiddleware(s.challengesHandler.HandleChallenge, "challenges"))
	mux.HandleFunc("/profiles/", MetricsMiddleware(s.profilesHandler.HandleProfile, "profiles"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandleListMatches, "matches"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates known sentinels to HTTP statuses and falls
// back to 500 for everything else.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, duel.ErrNoRound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, duel.ErrRoundActive):
		writeError(w, http.StatusConflict, "round_active", Wrap(op, err))
	case errors.Is(err, storage.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not_participant", Wrap(op, err))
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
