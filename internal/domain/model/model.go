// Package model contains domain models passed between layers.
package model

import "time"

// Opponent identifies the other side of a duel round.
type Opponent struct {
	ID          string
	DisplayName string
	// Placeholder is true when the opponent directory had no real candidate
	// and a stand-in was substituted.
	Placeholder bool
}

// Outcome is the immutable result of a settled duel round.
type Outcome struct {
	SelfScore     int
	OpponentScore int
	IsWinner      bool // strict greater; a tie counts as a loss
	Reward        int64
}

// OutcomeReport is the payload handed to the report pipeline once a round
// settles. It is produced at most once per round.
type OutcomeReport struct {
	RoundID       string
	PlayerID      string
	OpponentID    string
	OpponentName  string
	SelfScore     int
	OpponentScore int
	WinnerID      string
	Reward        int64
	SettledAt     time.Time
}

// MatchRecord is one row of the append-only match history.
type MatchRecord struct {
	ID            string
	PlayerID      string
	PlayerScore   int
	OpponentID    string
	OpponentName  string
	OpponentScore int
	WinnerID      string
	Reward        int64
	CreatedAt     time.Time
}

// Session is a completed bathroom timer session.
type Session struct {
	ID              string
	PlayerID        string
	StartedAt       time.Time
	DurationSeconds int
	EarningsCents   int64
	KakiAwarded     int64
	CreatedAt       time.Time
}

// SessionStats aggregates a player's recorded sessions.
type SessionStats struct {
	PlayerID           string
	Sessions           int
	TotalSeconds       int64
	TotalEarningsCents int64
	TotalKakiAwarded   int64
}

// Profile holds a player's identity and salary configuration. The ID is an
// opaque value supplied by the client's identity provider.
type Profile struct {
	ID                 string
	DisplayName        string
	MonthlySalaryCents int64
	WorkDaysPerMonth   int
	WorkHoursPerDay    float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Challenge statuses.
const (
	ChallengePending = "pending"
	ChallengeScored  = "scored"
)

// Challenge is a PVP invitation between two real accounts. Each side may
// record a score; a round settled against the challenge reads the opponent's
// recorded score instead of simulating one.
type Challenge struct {
	ID              string
	ChallengerID    string
	OpponentID      string
	Status          string
	ChallengerScore *int
	OpponentScore   *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
