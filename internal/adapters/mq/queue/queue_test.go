package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	report1 := model.OutcomeReport{RoundID: "round1", PlayerID: "p1", Reward: 3}
	if !q.Enqueue(ctx, report1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	reportChan := q.Dequeue(ctx)
	report := <-reportChan
	if report.RoundID != "round1" {
		t.Errorf("expected round1, got %v", report.RoundID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	report1 := model.OutcomeReport{RoundID: "round1", PlayerID: "p1"}
	report2 := model.OutcomeReport{RoundID: "round2", PlayerID: "p2"}
	report3 := model.OutcomeReport{RoundID: "round3", PlayerID: "p3"}

	if !q.Enqueue(ctx, report1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, report2) {
		t.Error("expected enqueue to succeed")
	}

	// Full queue drops the report instead of blocking.
	if q.Enqueue(ctx, report3) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected new queue to be open")
	}

	q.Enqueue(ctx, model.OutcomeReport{RoundID: "round1"})

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}

	if q.Enqueue(ctx, model.OutcomeReport{RoundID: "round2"}) {
		t.Error("expected enqueue on closed queue to fail")
	}

	// Buffered reports drain, then the channel closes.
	reportChan := q.Dequeue(ctx)
	report, ok := <-reportChan
	if !ok || report.RoundID != "round1" {
		t.Errorf("expected buffered round1, got %v (ok=%v)", report.RoundID, ok)
	}
	select {
	case _, ok := <-reportChan:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for channel close")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10000))
	ctx := context.Background()
	numGoroutines := 10
	numReports := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numReports; j++ {
				report := model.OutcomeReport{
					RoundID:  fmt.Sprintf("round-%d-%d", id, j),
					PlayerID: fmt.Sprintf("p%d", id),
				}
				if !q.Enqueue(ctx, report) {
					t.Errorf("enqueue failed for %s", report.RoundID)
				}
			}
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for producers")
		}
	}

	if l := q.Len(ctx); l != numGoroutines*numReports {
		t.Errorf("expected %d queued reports, got %d", numGoroutines*numReports, l)
	}
}
