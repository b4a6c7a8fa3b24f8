package duel

import (
	"context"
	"sync"

	"github.com/wctimer/server/internal/domain/model"
)

// MatchFactory builds a configured match for a player/opponent pair. The
// challengeID is empty for casual (non-challenge) rounds.
type MatchFactory func(playerID string, opponent model.Opponent, challengeID string) *Match

// Manager owns the live rounds and enforces the one-active-round-per-player
// invariant.
type Manager struct {
	mu      sync.Mutex
	factory MatchFactory
	active  map[string]*Match
}

// NewManager creates a manager that builds matches with factory.
func NewManager(factory MatchFactory) *Manager {
	return &Manager{
		factory: factory,
		active:  make(map[string]*Match),
	}
}

// Start creates a new armed round for the player. A settled or idle previous
// round is replaced; an armed or running one is not.
func (g *Manager) Start(_ context.Context, playerID string, opponent model.Opponent, challengeID string) (*Match, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.active[playerID]; ok {
		switch existing.Phase() {
		case PhaseArmed, PhaseRunning:
			return nil, ErrRoundActive
		case PhaseIdle, PhaseSettled:
			// Replaced below; stop a straggler clock just in case.
			existing.Cancel()
		}
	}

	m := g.factory(playerID, opponent, challengeID)
	g.active[playerID] = m
	return m, nil
}

// Get returns the player's current round.
func (g *Manager) Get(playerID string) (*Match, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.active[playerID]
	if !ok {
		return nil, ErrNoRound
	}
	return m, nil
}

// Click registers a tap on the player's current round.
func (g *Manager) Click(ctx context.Context, playerID string) (*Match, ClickResult, error) {
	m, err := g.Get(playerID)
	if err != nil {
		return nil, ClickResult{}, err
	}
	return m, m.RegisterClick(ctx), nil
}

// Close discards the player's round. It returns true when an unsettled round
// was cancelled (no outcome, no report).
func (g *Manager) Close(_ context.Context, playerID string) (bool, error) {
	g.mu.Lock()
	m, ok := g.active[playerID]
	if ok {
		delete(g.active, playerID)
	}
	g.mu.Unlock()

	if !ok {
		return false, ErrNoRound
	}
	return m.Cancel(), nil
}

// Shutdown cancels every live round; used on service stop so no clock ticks
// outlive the process teardown.
func (g *Manager) Shutdown() {
	g.mu.Lock()
	matches := make([]*Match, 0, len(g.active))
	for _, m := range g.active {
		matches = append(matches, m)
	}
	g.active = make(map[string]*Match)
	g.mu.Unlock()

	for _, m := range matches {
		m.Cancel()
	}
}

// ActiveCount returns the number of armed or running rounds.
func (g *Manager) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, m := range g.active {
		switch m.Phase() {
		case PhaseArmed, PhaseRunning:
			n++
		}
	}
	return n
}
