package duel

// Default reward constants. The win amount is configurable because the
// product has shipped both +3 and +4 variants at different times.
const (
	DefaultWinReward  = 3
	DefaultLossReward = -1
)

// Policy maps a settled round's scores to a kaki delta. It is a pure value
// object: the same scores always produce the same reward, and nothing else
// (streaks, opponent skill) influences it.
type Policy struct {
	Win  int64
	Loss int64
}

// DefaultPolicy returns the shipped win/loss constants.
func DefaultPolicy() Policy {
	return Policy{Win: DefaultWinReward, Loss: DefaultLossReward}
}

// ComputeReward returns the kaki delta for the given scores. The comparison
// is strict: a tie pays the loss amount.
func (p Policy) ComputeReward(selfScore, opponentScore int) int64 {
	if selfScore > opponentScore {
		return p.Win
	}
	return p.Loss
}
