// Package simulate drives a running server with generated traffic: fake
// players, timer sessions and duel rounds, followed by a leaderboard
// consistency check.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL           string        // Base URL of the service
	Players           int           // Number of fake players to register
	SessionsPerPlayer int           // Sessions submitted per player
	RoundsPerPlayer   int           // Duel rounds played per player
	ClicksPerRound    int           // Scored clicks per round
	Workers           int           // Number of concurrent workers
	Timeout           time.Duration // HTTP request timeout
	SettleWait        time.Duration // How long to poll for a round to settle
	DuplicateEveryN   int           // Replay every Nth session to exercise dedupe
	LeaderboardLimit  int           // Entries to fetch for the final check
	Verbose           bool          // Enable verbose logging
}

// Player is one generated account.
type Player struct {
	ID                 string
	DisplayName        string
	MonthlySalaryCents int64
}

// Stats holds simulation counters.
type Stats struct {
	PlayersRegistered  int
	SessionsSubmitted  int
	SessionsDuplicate  int
	SessionsFailed     int
	RoundsPlayed       int
	RoundsSettled      int
	RoundsFailed       int
	ClicksSent         int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Wire shapes of the server's JSON API.

type profileRequest struct {
	DisplayName        string  `json:"display_name"`
	MonthlySalaryCents int64   `json:"monthly_salary_cents"`
	WorkDaysPerMonth   int     `json:"work_days_per_month"`
	WorkHoursPerDay    float64 `json:"work_hours_per_day"`
}

type sessionRequest struct {
	SessionID       string `json:"session_id"`
	PlayerID        string `json:"player_id"`
	StartedAt       string `json:"started_at"`
	DurationSeconds int    `json:"duration_seconds"`
}

type sessionAck struct {
	SessionID     string `json:"session_id"`
	EarningsCents int64  `json:"earnings_cents"`
	KakiAwarded   int64  `json:"kaki_awarded"`
	Duplicate     bool   `json:"duplicate"`
}

type startRoundRequest struct {
	PlayerID    string `json:"player_id"`
	OpponentID  string `json:"opponent_id,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

type outcomeView struct {
	SelfScore     int   `json:"self_score"`
	OpponentScore int   `json:"opponent_score"`
	IsWinner      bool  `json:"is_winner"`
	Reward        int64 `json:"reward"`
}

type roundView struct {
	RoundID          string       `json:"round_id"`
	PlayerID         string       `json:"player_id"`
	OpponentID       string       `json:"opponent_id"`
	Phase            string       `json:"phase"`
	RemainingSeconds int          `json:"remaining_seconds"`
	SelfClicks       int          `json:"self_clicks"`
	Outcome          *outcomeView `json:"outcome,omitempty"`
}

type leaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Kaki     int64  `json:"kaki"`
}
