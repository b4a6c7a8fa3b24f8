package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	queue "github.com/wctimer/server/internal/adapters/mq/queue"
	worker "github.com/wctimer/server/internal/adapters/mq/worker"
	storage "github.com/wctimer/server/internal/adapters/storage"
	model "github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Mock implementations for testing.
type mockQueue struct {
	reportChan chan queue.Report
}

func newMockQueue() *mockQueue {
	return &mockQueue{reportChan: make(chan queue.Report, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Report {
	return mq.reportChan
}

func (mq *mockQueue) addReport(report queue.Report) {
	mq.reportChan <- report
}

type mockLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	err      error
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]int64)}
}

func (ml *mockLedger) ApplyDelta(_ context.Context, playerID string, delta int64) (int64, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.err != nil {
		return 0, ml.err
	}
	ml.balances[playerID] += delta
	return ml.balances[playerID], nil
}

func (ml *mockLedger) balance(playerID string) int64 {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.balances[playerID]
}

type mockHistory struct {
	mu      sync.Mutex
	records map[string]model.MatchRecord
	err     error
}

func newMockHistory() *mockHistory {
	return &mockHistory{records: make(map[string]model.MatchRecord)}
}

func (mh *mockHistory) AppendMatch(_ context.Context, m model.MatchRecord) error {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	if mh.err != nil {
		return mh.err
	}
	if _, exists := mh.records[m.ID]; exists {
		return storage.ErrDuplicateRecord
	}
	mh.records[m.ID] = m
	return nil
}

func (mh *mockHistory) count() int {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	return len(mh.records)
}

type mockBalances struct {
	mu    sync.Mutex
	saved map[string]int64
	err   error
}

func newMockBalances() *mockBalances {
	return &mockBalances{saved: make(map[string]int64)}
}

func (mb *mockBalances) SaveBalance(_ context.Context, playerID string, kaki int64) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.err != nil {
		return mb.err
	}
	mb.saved[playerID] = kaki
	return nil
}

func (mb *mockBalances) saved0(playerID string) (int64, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	v, ok := mb.saved[playerID]
	return v, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func sampleReport(roundID string, reward int64) queue.Report {
	winner := "p1"
	if reward < 0 {
		winner = "p2"
	}
	return queue.Report{
		RoundID:       roundID,
		PlayerID:      "p1",
		OpponentID:    "p2",
		OpponentName:  "second",
		SelfScore:     25,
		OpponentScore: 20,
		WinnerID:      winner,
		Reward:        reward,
		SettledAt:     time.Now().UTC(),
	}
}

func TestWorkerProcessing(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		ledger := newMockLedger()
		history := newMockHistory()
		balances := newMockBalances()

		w := worker.NewInMemoryWorker(mq, ledger, history, balances, worker.WithName("w0"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a win report arrives", func() {
			mq.addReport(sampleReport("round-1", 3))

			waitFor(t, func() bool { return history.count() == 1 })

			convey.Convey("Then the reward lands in the ledger", func() {
				convey.So(ledger.balance("p1"), convey.ShouldEqual, 3)
			})

			convey.Convey("Then the balance is written behind", func() {
				waitFor(t, func() bool {
					v, ok := balances.saved0("p1")
					return ok && v == 3
				})
			})
		})

		convey.Convey("When the same round is redelivered", func() {
			mq.addReport(sampleReport("round-1", 3))
			mq.addReport(sampleReport("round-1", 3))

			waitFor(t, func() bool {
				v, ok := balances.saved0("p1")
				return ok && v == 3
			})

			convey.Convey("Then the reward is applied once", func() {
				convey.So(history.count(), convey.ShouldEqual, 1)
				convey.So(ledger.balance("p1"), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a loss report arrives", func() {
			mq.addReport(sampleReport("round-2", -1))

			waitFor(t, func() bool { return history.count() == 1 })

			convey.Convey("Then the penalty is applied", func() {
				convey.So(ledger.balance("p1"), convey.ShouldEqual, -1)
			})
		})

		convey.Convey("When the history insert fails", func() {
			history.err = errors.New("disk full")
			mq.addReport(sampleReport("round-3", 3))

			// Give the worker a moment to pick the report up.
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then no reward is applied", func() {
				convey.So(ledger.balance("p1"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the balance write-behind fails", func() {
			balances.err = errors.New("disk full")
			mq.addReport(sampleReport("round-4", 3))

			waitFor(t, func() bool { return history.count() == 1 })

			convey.Convey("Then the reward still lands in the ledger", func() {
				convey.So(ledger.balance("p1"), convey.ShouldEqual, 3)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		w := worker.NewInMemoryWorker(mq, newMockLedger(), newMockHistory(), newMockBalances())

		ctx := context.Background()
		go w.Run(ctx)

		convey.Convey("When it is shut down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ledger := newMockLedger()
		history := newMockHistory()
		balances := newMockBalances()

		pool := worker.NewPool(4, q, ledger, history, balances)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many reports are enqueued", func() {
			const rounds = 30
			for i := 0; i < rounds; i++ {
				report := sampleReport(fmt.Sprintf("round-%d", i), 3)
				convey.So(q.Enqueue(ctx, report), convey.ShouldBeTrue)
			}

			waitFor(t, func() bool { return history.count() == rounds })

			convey.Convey("Then every round is settled exactly once", func() {
				convey.So(ledger.balance("p1"), convey.ShouldEqual, int64(rounds*3))
			})
		})

		convey.Convey("When the pool is shut down twice", func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 2*time.Second)
			defer cancelShutdown()

			convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}
