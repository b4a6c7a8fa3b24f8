package duel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/internal/domain/types"
)

// DefaultDurationSeconds is the shipped round length.
const DefaultDurationSeconds = 8

// Reporter receives the settled outcome without blocking the state machine.
// It is invoked at most once per round.
type Reporter interface {
	Report(ctx context.Context, report model.OutcomeReport)
}

// Listener observes round state for the presentation layer. Callbacks are
// invoked outside the match lock; implementations must not call back into
// the match synchronously.
type Listener interface {
	OnPhaseChange(phase Phase)
	OnTick(remainingSeconds int)
	OnClickCountChange(clicks int)
	OnSettled(outcome model.Outcome)
}

// ClickResult describes what a registered click did.
type ClickResult struct {
	// Started is true when the click transitioned Armed to Running. The
	// starting tap is never scored.
	Started bool
	// Counted is true when the click incremented the score.
	Counted bool
}

// Match is one round of the clicking game. Clock ticks and click
// registrations arrive concurrently; all state is guarded by one mutex and
// applied in arrival order, so each tick decrements by exactly 1 and each
// click increments by exactly 1.
type Match struct {
	mu sync.Mutex

	id       string
	playerID string
	opponent model.Opponent

	phase         Phase
	duration      int
	remaining     int
	clicks        int
	opponentScore int
	outcome       *model.Outcome
	settledAt     time.Time

	clock     Clock
	resolver  Resolver
	fallback  Resolver
	policy    Policy
	reporter  Reporter
	listeners []Listener
}

// MatchOption applies a configuration option to a Match.
type MatchOption func(*Match)

// WithDuration sets the round length in seconds.
func WithDuration(seconds int) MatchOption {
	return func(m *Match) {
		if seconds > 0 {
			m.duration = seconds
		}
	}
}

// WithClock sets the tick source.
func WithClock(c Clock) MatchOption {
	return func(m *Match) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithResolver sets the opponent score resolver.
func WithResolver(r Resolver) MatchOption {
	return func(m *Match) {
		if r != nil {
			m.resolver = r
		}
	}
}

// WithPolicy sets the reward policy.
func WithPolicy(p Policy) MatchOption {
	return func(m *Match) {
		m.policy = p
	}
}

// WithReporter sets the outcome reporter.
func WithReporter(r Reporter) MatchOption {
	return func(m *Match) {
		m.reporter = r
	}
}

// WithListener registers a presentation listener. Listeners must be
// registered before the round is played; they are not synchronized.
func WithListener(l Listener) MatchOption {
	return func(m *Match) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

// NewMatch creates an armed round against the given opponent. The countdown
// holds at the full duration until the first tap.
func NewMatch(playerID string, opponent model.Opponent, opts ...MatchOption) *Match {
	m := &Match{
		id:       uuid.NewString(),
		playerID: playerID,
		opponent: opponent,
		duration: DefaultDurationSeconds,
		policy:   DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewTickerClock(time.Second)
	}
	if m.resolver == nil {
		m.resolver = NewSimulatedResolver()
	}
	m.fallback = NewSimulatedResolver()
	m.phase = PhaseArmed
	m.remaining = m.duration
	return m
}

// RegisterClick applies one tap. While Armed it starts the countdown at
// duration-1 without scoring; while Running it scores one click; in any
// other phase it is ignored.
func (m *Match) RegisterClick(ctx context.Context) ClickResult {
	m.mu.Lock()
	switch m.phase {
	case PhaseArmed:
		m.phase = PhaseRunning
		m.remaining--
		remaining := m.remaining
		m.mu.Unlock()

		m.notifyPhase(PhaseRunning)
		m.notifyTick(remaining)
		if remaining <= 0 {
			// Degenerate one-second rounds settle on the starting tap.
			m.settle(ctx)
			return ClickResult{Started: true}
		}
		m.clock.Start(func() { m.tick(context.Background()) })
		return ClickResult{Started: true}

	case PhaseRunning:
		m.clicks++
		n := m.clicks
		m.mu.Unlock()

		m.notifyClicks(n)
		return ClickResult{Counted: true}

	default:
		// Idle or Settled: input out of phase is ignored, not an error.
		m.mu.Unlock()
		return ClickResult{}
	}
}

// tick applies one countdown step. Ticks outside Running are ignored, which
// also swallows any tick racing in after teardown.
func (m *Match) tick(ctx context.Context) {
	m.mu.Lock()
	if m.phase != PhaseRunning || m.remaining <= 0 {
		m.mu.Unlock()
		return
	}
	m.remaining--
	remaining := m.remaining
	m.mu.Unlock()

	m.notifyTick(remaining)
	if remaining <= 0 {
		m.settle(ctx)
	}
}

// settle finalizes the round exactly once: resolves the opponent score,
// computes the outcome and hands it to the reporter.
func (m *Match) settle(ctx context.Context) {
	m.mu.Lock()
	if m.phase != PhaseRunning {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseSettled
	self := m.clicks
	opponent := m.opponent
	m.mu.Unlock()

	m.clock.Stop()

	score, err := m.resolver.Resolve(ctx, opponent.ID)
	if err != nil {
		// Resolution must not block settlement; substitute a simulated
		// score and carry on.
		score, _ = m.fallback.Resolve(ctx, opponent.ID)
	}

	outcome := model.Outcome{
		SelfScore:     self,
		OpponentScore: score,
		IsWinner:      self > score,
		Reward:        m.policy.ComputeReward(self, score),
	}
	settledAt := time.Now()

	m.mu.Lock()
	if m.phase != PhaseSettled {
		// Cancelled while resolving: the round produces nothing.
		m.mu.Unlock()
		return
	}
	m.opponentScore = score
	m.outcome = &outcome
	m.settledAt = settledAt
	m.mu.Unlock()

	m.notifyPhase(PhaseSettled)
	m.notifySettled(outcome)

	if m.reporter != nil {
		winnerID := opponent.ID
		if outcome.IsWinner {
			winnerID = m.playerID
		}
		m.reporter.Report(ctx, model.OutcomeReport{
			RoundID:       m.id,
			PlayerID:      m.playerID,
			OpponentID:    opponent.ID,
			OpponentName:  opponent.DisplayName,
			SelfScore:     outcome.SelfScore,
			OpponentScore: outcome.OpponentScore,
			WinnerID:      winnerID,
			Reward:        outcome.Reward,
			SettledAt:     settledAt,
		})
	}
}

// Cancel tears the round down. An unsettled round is discarded without an
// outcome or report; Cancel returns true in that case.
func (m *Match) Cancel() bool {
	m.mu.Lock()
	wasSettled := m.phase == PhaseSettled
	m.phase = PhaseIdle
	m.mu.Unlock()

	m.clock.Stop()
	if wasSettled {
		return false
	}
	m.notifyPhase(PhaseIdle)
	return true
}

// ID returns the round id.
func (m *Match) ID() string { return m.id }

// PlayerID returns the owning player's id.
func (m *Match) PlayerID() string { return m.playerID }

// Opponent returns the resolved opponent, fixed for the round's lifetime.
func (m *Match) Opponent() model.Opponent { return m.opponent }

// Phase returns the current lifecycle phase.
func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Clicks returns the current scored click count.
func (m *Match) Clicks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks
}

// Remaining returns the countdown value in seconds.
func (m *Match) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// Outcome returns a copy of the settled outcome, or nil before settlement.
func (m *Match) Outcome() *model.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return nil
	}
	out := *m.outcome
	return &out
}

// View returns a point-in-time view for the presentation layer.
func (m *Match) View() types.RoundView {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := types.RoundView{
		RoundID:          m.id,
		PlayerID:         m.playerID,
		OpponentID:       m.opponent.ID,
		OpponentName:     m.opponent.DisplayName,
		Phase:            m.phase.String(),
		RemainingSeconds: m.remaining,
		SelfClicks:       m.clicks,
	}
	if m.outcome != nil {
		v.Outcome = &types.OutcomeView{
			SelfScore:     m.outcome.SelfScore,
			OpponentScore: m.outcome.OpponentScore,
			IsWinner:      m.outcome.IsWinner,
			Reward:        m.outcome.Reward,
		}
	}
	return v
}

func (m *Match) notifyPhase(p Phase) {
	for _, l := range m.listeners {
		l.OnPhaseChange(p)
	}
}

func (m *Match) notifyTick(remaining int) {
	for _, l := range m.listeners {
		l.OnTick(remaining)
	}
}

func (m *Match) notifyClicks(n int) {
	for _, l := range m.listeners {
		l.OnClickCountChange(n)
	}
}

func (m *Match) notifySettled(outcome model.Outcome) {
	for _, l := range m.listeners {
		l.OnSettled(outcome)
	}
}
