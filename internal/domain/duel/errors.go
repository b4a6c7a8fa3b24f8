package duel

import "errors"

// Sentinel kinds for duel errors.
var (
	ErrRoundActive = errors.New("a round is already active for this player")
	ErrNoRound     = errors.New("no active round for this player")
)
