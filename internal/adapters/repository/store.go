// Package repository defines the kaki ledger interface and errors.
package repository

import "context"

// Entry represents a ledger row with its leaderboard position.
type Entry struct {
	Rank     int
	PlayerID string
	Kaki     int64
}

// Ledger provides read/write access to player kaki balances and their
// leaderboard ordering.
type Ledger interface {
	// ApplyDelta atomically adjusts a player's balance by delta, creating
	// the player at delta if unknown. Returns the resulting balance.
	// Balances may go negative; duel losses cost kaki.
	ApplyDelta(ctx context.Context, playerID string, delta int64) (int64, error)

	// SetBalance overwrites a player's balance. Used when seeding the
	// ledger from persisted state at startup.
	SetBalance(ctx context.Context, playerID string, kaki int64) error

	// Balance returns a player's current balance.
	// Returns ErrNotFound if the player is unknown.
	Balance(ctx context.Context, playerID string) (int64, error)

	// Rank returns the current rank and balance for a player.
	// Returns ErrNotFound if the player is unknown.
	Rank(ctx context.Context, playerID string) (Entry, error)

	// TopN returns the top-N entries ordered by balance desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players tracked in the ledger.
	Count(ctx context.Context) int
}
