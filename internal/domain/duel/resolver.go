package duel

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Default simulated score bounds, matching the shipped random opponent.
const (
	defaultScoreMin = 20
	defaultScoreMax = 70
)

// Resolver supplies the opponent's comparison score for a round. It is
// invoked exactly once, at settlement.
type Resolver interface {
	Resolve(ctx context.Context, opponentID string) (int, error)
}

// ResolverOption applies a configuration option to the SimulatedResolver.
type ResolverOption func(*SimulatedResolver)

// WithScoreRange sets the inclusive bounds for simulated scores.
func WithScoreRange(minScore, maxScore int) ResolverOption {
	return func(r *SimulatedResolver) {
		if minScore >= 0 && maxScore > minScore {
			r.min = minScore
			r.max = maxScore
		}
	}
}

// WithSeed makes the resolver deterministic for tests.
func WithSeed(seed int64) ResolverOption {
	return func(r *SimulatedResolver) {
		r.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // game scores, not crypto
	}
}

// SimulatedResolver returns a uniformly distributed pseudo-random score.
// It never fails.
type SimulatedResolver struct {
	mu  sync.Mutex
	rng *rand.Rand
	min int
	max int
}

// NewSimulatedResolver creates a resolver with the default 20-70 range.
func NewSimulatedResolver(opts ...ResolverOption) *SimulatedResolver {
	r := &SimulatedResolver{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // game scores, not crypto
		min: defaultScoreMin,
		max: defaultScoreMax,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a score in [min, max].
func (r *SimulatedResolver) Resolve(_ context.Context, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.min + r.rng.Intn(r.max-r.min+1), nil
}

// RecordedScores reads the score a participant recorded on a challenge
// exchange. The bool result reports whether a score was recorded at all.
type RecordedScores interface {
	RecordedScore(ctx context.Context, challengeID, playerID string) (int, bool, error)
}

// RecordedResolver reads the opponent's recorded score for a challenge and
// falls back to simulation when no score is available in time. Like every
// Resolver it settles the round regardless of remote failures.
type RecordedResolver struct {
	challengeID string
	scores      RecordedScores
	fallback    Resolver
}

// NewRecordedResolver creates a resolver bound to one challenge.
func NewRecordedResolver(challengeID string, scores RecordedScores, fallback Resolver) *RecordedResolver {
	if fallback == nil {
		fallback = NewSimulatedResolver()
	}
	return &RecordedResolver{
		challengeID: challengeID,
		scores:      scores,
		fallback:    fallback,
	}
}

// Resolve returns the recorded score when present, otherwise simulates.
func (r *RecordedResolver) Resolve(ctx context.Context, opponentID string) (int, error) {
	if r.scores != nil {
		score, ok, err := r.scores.RecordedScore(ctx, r.challengeID, opponentID)
		if err == nil && ok {
			return score, nil
		}
	}
	return r.fallback.Resolve(ctx, opponentID)
}
