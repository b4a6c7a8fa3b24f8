// Package duel implements the PVP clicking mini-game: a countdown round in
// which a player accumulates clicks against a resolved opponent score, with a
// fixed win/lose kaki reward applied at settlement.
package duel

// Phase is the lifecycle state of a round.
type Phase int

const (
	// PhaseIdle means no round is in play.
	PhaseIdle Phase = iota
	// PhaseArmed means the round exists but the countdown has not started;
	// the first tap starts the clock without scoring.
	PhaseArmed
	// PhaseRunning means the countdown is decrementing and clicks score.
	PhaseRunning
	// PhaseSettled means the round produced its outcome.
	PhaseSettled
)

// String returns the lowercase phase name used in API payloads.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhaseRunning:
		return "running"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}
