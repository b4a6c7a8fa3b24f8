// Package worker drains settled-round reports off the queue and applies
// them: match history first, then the kaki ledger, then the write-behind
// balance row. The history insert doubles as the idempotency gate since
// its primary key is the round ID.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/wctimer/server/internal/adapters/storage"
	"github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/pkg/logger"
	"github.com/wctimer/server/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
)

// Report abstracts what workers read off the queue.
type Report = model.OutcomeReport

// Ledger applies kaki deltas for settled rounds.
type Ledger interface {
	ApplyDelta(ctx context.Context, playerID string, delta int64) (int64, error)
}

// History appends settled rounds to the durable match log.
type History interface {
	AppendMatch(ctx context.Context, m model.MatchRecord) error
}

// BalanceWriter persists ledger balances for reseeding on restart.
type BalanceWriter interface {
	SaveBalance(ctx context.Context, playerID string, kaki int64) error
}

// Queue defines how workers receive reports.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Report
}

// Worker processes reports until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing settled-round reports.
type InMemoryWorker struct {
	queue    Queue
	ledger   Ledger
	history  History
	balances BalanceWriter
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, ledger Ledger, history History, balances BalanceWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		ledger:   ledger,
		history:  history,
		balances: balances,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	reportChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case report, ok := <-reportChan:
			if !ok {
				return
			}

			if err := w.processReport(ctx, report); err != nil {
				w.logger.Error(ctx, "error processing report", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processReport handles a single settled-round report.
func (w *InMemoryWorker) processReport(ctx context.Context, report Report) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	rec := model.MatchRecord{
		ID:            report.RoundID,
		PlayerID:      report.PlayerID,
		PlayerScore:   report.SelfScore,
		OpponentID:    report.OpponentID,
		OpponentName:  report.OpponentName,
		OpponentScore: report.OpponentScore,
		WinnerID:      report.WinnerID,
		Reward:        report.Reward,
		CreatedAt:     report.SettledAt,
	}

	// History goes first: its round-ID primary key makes redelivered
	// reports a no-op before any balance is touched.
	if err := w.history.AppendMatch(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateRecord) {
			w.logger.Debug(ctx, "report already processed",
				logger.String("roundID", report.RoundID))
			return nil
		}
		metrics.RecordWorkerError()
		metrics.RecordReportFailure("history")
		return fmt.Errorf("append match %s: %w", report.RoundID, err)
	}

	balance, err := w.ledger.ApplyDelta(ctx, report.PlayerID, report.Reward)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordReportFailure("ledger")
		return fmt.Errorf("apply kaki delta for %s: %w", report.PlayerID, err)
	}

	metrics.RecordRoundSettled()
	metrics.RecordDuelOutcome(report.WinnerID == report.PlayerID)
	metrics.RecordKakiDelta(report.Reward)

	// Balance persistence is write-behind; losing it costs a reseed, not
	// a reward, so the report still counts as processed.
	if err := w.balances.SaveBalance(ctx, report.PlayerID, balance); err != nil {
		metrics.RecordReportFailure("persist_balance")
		w.logger.Warn(ctx, "balance write-behind failed",
			logger.String("playerID", report.PlayerID),
			logger.Error(err),
		)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, ledger Ledger, history History, balances BalanceWriter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			ledger,
			history,
			balances,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown gracefully stops every worker in the pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	select {
	case <-p.shutdown:
		return nil
	default:
		close(p.shutdown)
	}

	var firstErr error
	for _, worker := range p.workers {
		if err := worker.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	metrics.UpdateWorkerCount(0)
	return firstErr
}
