// Package types contains common types used across the application
package types

// Entry represents a kaki leaderboard entry
type Entry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Kaki     int64  `json:"kaki"`
}

// OutcomeView is the settled result of a round as shown to the player.
type OutcomeView struct {
	SelfScore     int   `json:"self_score"`
	OpponentScore int   `json:"opponent_score"`
	IsWinner      bool  `json:"is_winner"`
	Reward        int64 `json:"reward"`
}

// RoundView is a point-in-time view of a duel round.
type RoundView struct {
	RoundID          string       `json:"round_id"`
	PlayerID         string       `json:"player_id"`
	OpponentID       string       `json:"opponent_id"`
	OpponentName     string       `json:"opponent_name"`
	Phase            string       `json:"phase"`
	RemainingSeconds int          `json:"remaining_seconds"`
	SelfClicks       int          `json:"self_clicks"`
	Outcome          *OutcomeView `json:"outcome,omitempty"`
}
