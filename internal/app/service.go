// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	reportqueue "github.com/wctimer/server/internal/adapters/mq/queue"
	workerpool "github.com/wctimer/server/internal/adapters/mq/worker"
	"github.com/wctimer/server/internal/adapters/repository"
	"github.com/wctimer/server/internal/adapters/storage"
	"github.com/wctimer/server/internal/config"
	"github.com/wctimer/server/internal/domain/dedupe"
	"github.com/wctimer/server/internal/domain/directory"
	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/internal/domain/earnings"
	"github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/internal/domain/types"
	"github.com/wctimer/server/pkg/logger"
	"github.com/wctimer/server/pkg/metrics"
)

// queueReporter hands settled-round reports to the report queue. Settlement
// never blocks on it: a full or closed queue drops the report and the loss
// is surfaced through metrics.
type queueReporter struct {
	queue  *reportqueue.InMemoryQueue
	logger logger.Logger
}

func (r *queueReporter) Report(ctx context.Context, report model.OutcomeReport) {
	if r.queue.Enqueue(ctx, report) {
		metrics.UpdateQueueSize(r.queue.Len(ctx))
		return
	}
	metrics.RecordReportFailure("enqueue")
	r.logger.Warn(ctx, "report dropped, queue unavailable",
		logger.String("roundID", report.RoundID),
		logger.String("playerID", report.PlayerID),
	)
}

// Service implements the API dependencies for the duel backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	cfg       *config.Config
	store     *storage.Store
	ledger    *repository.TreapStore
	deduper   dedupe.Deduper
	queue     *reportqueue.InMemoryQueue
	pool      *workerpool.Pool
	manager   *duel.Manager
	directory *directory.Directory
	scheduler gocron.Scheduler

	clockFactory  func() duel.Clock
	directorySeed *uint64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:          config.New(),
		clockFactory: func() duel.Clock { return duel.NewTickerClock(time.Second) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting duel service...")

	store, err := storage.New(s.cfg.DBPath)
	if err != nil {
		return err
	}
	s.store = store

	s.ledger = repository.NewTreapStore(ctx,
		repository.WithSnapshotInterval(time.Duration(s.cfg.LedgerSnapshotSeconds)*time.Second),
		repository.WithTopCacheSize(s.cfg.MaxLeaderboardLimit),
		repository.WithMetricsUpdateInterval(time.Duration(s.cfg.MetricsRefreshSeconds)*time.Second),
	)
	if err := s.seedLedger(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.cfg.DedupeSize),
	)
	s.queue = reportqueue.NewInMemoryQueue(
		reportqueue.WithCapacity(s.cfg.ReportQueueSize),
		reportqueue.WithBufferSize(s.cfg.ReportQueueSize),
	)

	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.ledger, s.store, s.store)
	s.pool.Start(ctx)

	dirOpts := []directory.Option{directory.WithSampleSize(directory.DefaultSampleSize)}
	if s.directorySeed != nil {
		dirOpts = append(dirOpts, directory.WithSeed(*s.directorySeed))
	}
	s.directory = directory.New(s.store, dirOpts...)

	s.manager = duel.NewManager(s.matchFactory())

	if err := s.startScheduler(); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "duel service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queueSize", s.cfg.ReportQueueSize),
		logger.Int("roundSeconds", s.cfg.RoundDurationSeconds),
		logger.String("dbPath", s.cfg.DBPath),
	)
	return nil
}

// seedLedger rebuilds the in-memory ledger from the persisted balances so
// ranks survive a restart.
func (s *Service) seedLedger(ctx context.Context) error {
	balances, err := s.store.LoadBalances(ctx)
	if err != nil {
		return err
	}
	for playerID, kaki := range balances {
		if err := s.ledger.SetBalance(ctx, playerID, kaki); err != nil {
			return err
		}
	}
	if len(balances) > 0 {
		s.logger.Info(ctx, "ledger seeded from storage", logger.Int("players", len(balances)))
	}
	return nil
}

// matchFactory builds the per-round configuration: countdown length, reward
// policy, opponent score resolution and the report pipeline hookup.
func (s *Service) matchFactory() duel.MatchFactory {
	reporter := &queueReporter{queue: s.queue, logger: s.logger.Named("reporter")}
	cfg := s.cfg

	return func(playerID string, opponent model.Opponent, challengeID string) *duel.Match {
		var resolver duel.Resolver = duel.NewSimulatedResolver(
			duel.WithScoreRange(cfg.OpponentScoreMin, cfg.OpponentScoreMax),
		)
		if challengeID != "" {
			resolver = duel.NewRecordedResolver(challengeID, s.store, resolver)
		}
		return duel.NewMatch(playerID, opponent,
			duel.WithDuration(cfg.RoundDurationSeconds),
			duel.WithPolicy(duel.Policy{Win: cfg.RewardWin, Loss: cfg.RewardLoss}),
			duel.WithResolver(resolver),
			duel.WithReporter(reporter),
			duel.WithClock(s.clockFactory()),
		)
	}
}

// startScheduler launches the periodic background jobs.
func (s *Service) startScheduler() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	refresh := time.Duration(s.cfg.MetricsRefreshSeconds) * time.Second
	if refresh <= 0 {
		refresh = 5 * time.Second
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(refresh),
		gocron.NewTask(s.refreshSystemMetrics),
	); err != nil {
		return err
	}

	sched.Start()
	s.scheduler = sched
	return nil
}

func (s *Service) refreshSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started {
		metrics.UpdateQueueSize(s.queue.Len(context.Background()))
		metrics.UpdateQueueCapacity(s.cfg.ReportQueueSize)
		metrics.UpdateWorkerCount(s.cfg.WorkerCount)
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping duel service...")

	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}

	// Cancel live rounds first so no settlement lands in a closing queue.
	if s.manager != nil {
		s.manager.Shutdown()
	}

	if s.queue != nil {
		_ = s.queue.Close()
	}

	if s.pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = s.pool.Shutdown(shutdownCtx)
		cancel()
	}

	if s.ledger != nil {
		_ = s.ledger.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "duel service stopped")
}

// resolveOpponent fixes the other side of a round before it is armed.
func (s *Service) resolveOpponent(ctx context.Context, playerID, opponentID, challengeID string) (model.Opponent, error) {
	if challengeID != "" {
		ch, err := s.store.GetChallenge(ctx, challengeID)
		if err != nil {
			return model.Opponent{}, err
		}
		switch playerID {
		case ch.ChallengerID:
			opponentID = ch.OpponentID
		case ch.OpponentID:
			opponentID = ch.ChallengerID
		default:
			return model.Opponent{}, storage.ErrNotParticipant
		}
	}

	if opponentID != "" {
		name := opponentID
		if p, err := s.store.GetProfile(ctx, opponentID); err == nil {
			name = p.DisplayName
		}
		return model.Opponent{ID: opponentID, DisplayName: name}, nil
	}

	return s.directory.Pick(ctx, playerID)
}

// StartRound arms a new duel round for the player. An explicit opponentID
// pins the opponent; a challengeID binds the round to a recorded challenge;
// with neither, the directory picks one.
func (s *Service) StartRound(ctx context.Context, playerID, opponentID, challengeID string) (types.RoundView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.RoundView{}, ErrNotStarted
	}

	opponent, err := s.resolveOpponent(ctx, playerID, opponentID, challengeID)
	if err != nil {
		return types.RoundView{}, err
	}

	m, err := s.manager.Start(ctx, playerID, opponent, challengeID)
	if err != nil {
		return types.RoundView{}, err
	}

	metrics.RecordRoundStarted()
	s.logger.Debug(ctx, "round started",
		logger.String("roundID", m.ID()),
		logger.String("playerID", playerID),
		logger.String("opponentID", opponent.ID),
		logger.Bool("placeholder", opponent.Placeholder),
	)
	return m.View(), nil
}

// GetRound returns the player's current round.
func (s *Service) GetRound(ctx context.Context, playerID string) (types.RoundView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.RoundView{}, ErrNotStarted
	}

	m, err := s.manager.Get(playerID)
	if err != nil {
		return types.RoundView{}, err
	}
	return m.View(), nil
}

// Click registers one tap on the player's current round.
func (s *Service) Click(ctx context.Context, playerID string) (duel.ClickResult, types.RoundView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return duel.ClickResult{}, types.RoundView{}, ErrNotStarted
	}

	m, result, err := s.manager.Click(ctx, playerID)
	if err != nil {
		return duel.ClickResult{}, types.RoundView{}, err
	}
	if result.Started || result.Counted {
		metrics.RecordClick()
	}
	return result, m.View(), nil
}

// CancelRound discards the player's round. The bool result reports whether
// an unsettled round was actually cancelled.
func (s *Service) CancelRound(ctx context.Context, playerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	cancelled, err := s.manager.Close(ctx, playerID)
	if err != nil {
		return false, err
	}
	if cancelled {
		metrics.RecordRoundCancelled()
	}
	return cancelled, nil
}

// salaryFor prices a player's time. Profile fields left at zero fall back
// to the configured defaults.
func (s *Service) salaryFor(ctx context.Context, playerID string) earnings.Salary {
	salary := earnings.Salary{
		MonthlyCents:     s.cfg.DefaultMonthlySalaryCents,
		WorkDaysPerMonth: s.cfg.DefaultWorkDaysPerMonth,
		WorkHoursPerDay:  s.cfg.DefaultWorkHoursPerDay,
	}
	p, err := s.store.GetProfile(ctx, playerID)
	if err != nil {
		return salary.Normalize()
	}
	if p.MonthlySalaryCents > 0 {
		salary.MonthlyCents = p.MonthlySalaryCents
	}
	if p.WorkDaysPerMonth > 0 {
		salary.WorkDaysPerMonth = p.WorkDaysPerMonth
	}
	if p.WorkHoursPerDay > 0 {
		salary.WorkHoursPerDay = p.WorkHoursPerDay
	}
	return salary.Normalize()
}

// RecordSession stores a completed timer session exactly once. Replays of
// the same sessionID are acknowledged as duplicates without a second award.
func (s *Service) RecordSession(ctx context.Context, sessionID, playerID string, startedAt time.Time, durationSeconds int) (model.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Session{}, false, ErrNotStarted
	}

	sess := model.Session{
		ID:              sessionID,
		PlayerID:        playerID,
		StartedAt:       startedAt,
		DurationSeconds: durationSeconds,
		EarningsCents:   earnings.ForDuration(s.salaryFor(ctx, playerID), durationSeconds),
		KakiAwarded:     s.cfg.SessionKakiAward,
	}

	if s.deduper.SeenAndRecord(ctx, sessionID) {
		metrics.RecordSessionDuplicate()
		return sess, true, nil
	}

	if err := s.store.AppendSession(ctx, sess); err != nil {
		if errors.Is(err, storage.ErrDuplicateRecord) {
			// The dedupe window evicted it but storage remembers.
			metrics.RecordSessionDuplicate()
			return sess, true, nil
		}
		s.deduper.Unrecord(ctx, sessionID)
		return model.Session{}, false, err
	}

	if sess.KakiAwarded != 0 {
		balance, err := s.ledger.ApplyDelta(ctx, playerID, sess.KakiAwarded)
		if err != nil {
			s.logger.Warn(ctx, "session kaki award failed",
				logger.String("sessionID", sessionID),
				logger.Error(err),
			)
		} else if err := s.store.SaveBalance(ctx, playerID, balance); err != nil {
			metrics.RecordReportFailure("persist_balance")
			s.logger.Warn(ctx, "balance persistence failed",
				logger.String("playerID", playerID),
				logger.Error(err),
			)
		}
	}

	metrics.RecordSession(sess.EarningsCents)
	return sess, false, nil
}

// SessionStats aggregates a player's recorded sessions.
func (s *Service) SessionStats(ctx context.Context, playerID string) (model.SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.SessionStats{}, ErrNotStarted
	}
	return s.store.SessionStats(ctx, playerID)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	entries, err := s.ledger.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.Entry{
			Rank:     entry.Rank,
			PlayerID: entry.PlayerID,
			Kaki:     entry.Kaki,
		}
	}
	return apiEntries, nil
}

// Rank returns the rank and kaki balance for a given player id.
func (s *Service) Rank(ctx context.Context, playerID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Entry{}, ErrNotStarted
	}

	entry, err := s.ledger.Rank(ctx, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{
		Rank:     entry.Rank,
		PlayerID: entry.PlayerID,
		Kaki:     entry.Kaki,
	}, nil
}

// Opponents lists known players available as duel opponents.
func (s *Service) Opponents(ctx context.Context, excludeID string, limit int) ([]model.Opponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.ListOpponents(ctx, excludeID, limit)
}

// CreateChallenge opens a PVP challenge between two accounts.
func (s *Service) CreateChallenge(ctx context.Context, challengerID, opponentID string) (model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Challenge{}, ErrNotStarted
	}
	return s.store.CreateChallenge(ctx, challengerID, opponentID)
}

// GetChallenge returns one challenge by id.
func (s *Service) GetChallenge(ctx context.Context, id string) (model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Challenge{}, ErrNotStarted
	}
	return s.store.GetChallenge(ctx, id)
}

// ListChallenges returns the challenges a player participates in.
func (s *Service) ListChallenges(ctx context.Context, playerID string, limit int) ([]model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.ListChallenges(ctx, playerID, limit)
}

// SubmitChallengeScore records one side's score on a challenge. Replays are
// swallowed: the first recorded score stands and the current challenge state
// is returned.
func (s *Service) SubmitChallengeScore(ctx context.Context, challengeID, playerID string, score int) (model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Challenge{}, ErrNotStarted
	}

	key := "challenge-score:" + challengeID + ":" + playerID
	if s.deduper.SeenAndRecord(ctx, key) {
		return s.store.GetChallenge(ctx, challengeID)
	}

	ch, err := s.store.SubmitChallengeScore(ctx, challengeID, playerID, score)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return model.Challenge{}, err
	}
	return ch, nil
}

// SaveProfile upserts a player profile and returns the stored copy.
func (s *Service) SaveProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Profile{}, ErrNotStarted
	}

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return s.store.GetProfile(ctx, p.ID)
}

// GetProfile returns a player profile.
func (s *Service) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Profile{}, ErrNotStarted
	}
	return s.store.GetProfile(ctx, id)
}

// RecentMatches returns a player's settled rounds, newest first.
func (s *Service) RecentMatches(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.RecentMatches(ctx, playerID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.cfg.WorkerCount,
		"queueSize":    s.cfg.ReportQueueSize,
		"roundSeconds": s.cfg.RoundDurationSeconds,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		players := s.ledger.Count(ctx)

		stats["queueLength"] = queueLen
		stats["activeRounds"] = s.manager.ActiveCount()
		stats["totalPlayers"] = players
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLedgerPlayers(players)
		metrics.UpdateWorkerCount(s.cfg.WorkerCount)
	}

	return stats
}
