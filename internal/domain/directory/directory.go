// Package directory selects opponents for duel rounds. Real accounts are
// preferred; when none exist a placeholder stand-in is fabricated so the
// mini game never blocks on an empty roster.
package directory

import (
	"context"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/wctimer/server/internal/domain/model"
)

// DefaultSampleSize bounds how many candidates are pulled from the roster
// per pick.
const DefaultSampleSize = 16

// Roster lists known players that can be matched against.
type Roster interface {
	ListOpponents(ctx context.Context, excludeID string, limit int) ([]model.Opponent, error)
}

// Directory picks opponents from a roster, substituting placeholders
// when the roster comes back empty.
type Directory struct {
	roster     Roster
	faker      *gofakeit.Faker
	rng        *rand.Rand
	sampleSize int
}

// Option configures a Directory.
type Option func(*Directory)

// WithSeed makes picks and placeholder names deterministic.
func WithSeed(seed uint64) Option {
	return func(d *Directory) {
		d.faker = gofakeit.New(seed)
		d.rng = rand.New(rand.NewSource(int64(seed)))
	}
}

// WithSampleSize overrides how many roster candidates a pick considers.
func WithSampleSize(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a Directory backed by the given roster.
func New(roster Roster, opts ...Option) *Directory {
	d := &Directory{
		roster:     roster,
		faker:      gofakeit.New(0),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sampleSize: DefaultSampleSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Pick returns an opponent for the given player. The player itself is never
// returned. When the roster has no other account, or cannot be read at all,
// a placeholder opponent is fabricated instead of failing the round.
func (d *Directory) Pick(ctx context.Context, selfID string) (model.Opponent, error) {
	candidates, err := d.roster.ListOpponents(ctx, selfID, d.sampleSize)
	if err != nil || len(candidates) == 0 {
		return d.placeholder(), nil
	}

	return candidates[d.rng.Intn(len(candidates))], nil
}

func (d *Directory) placeholder() model.Opponent {
	return model.Opponent{
		ID:          "bot-" + uuid.NewString(),
		DisplayName: d.faker.Gamertag(),
		Placeholder: true,
	}
}
