package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	service "github.com/wctimer/server/internal/app"
	"github.com/wctimer/server/internal/config"
	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// clockBank hands out manual clocks so tests drive the countdown.
type clockBank struct {
	mu     sync.Mutex
	clocks []*duel.ManualClock
}

func (b *clockBank) factory() duel.Clock {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := duel.NewManualClock()
	b.clocks = append(b.clocks, c)
	return c
}

func (b *clockBank) last() *duel.ManualClock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clocks) == 0 {
		return nil
	}
	return b.clocks[len(b.clocks)-1]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.DBPath = filepath.Join(t.TempDir(), "svc.db")
	cfg.RoundDurationSeconds = 3
	cfg.WorkerCount = 2
	return cfg
}

func newTestService(t *testing.T) (*service.Service, *clockBank) {
	t.Helper()
	bank := &clockBank{}
	svc := service.New(
		service.WithConfig(testConfig(t)),
		service.WithClockFactory(bank.factory),
		service.WithDirectorySeed(7),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, bank
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then operations before Start should fail", func() {
			_, err := svc.GetProfile(context.Background(), "p1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
		})
	})

	Convey("Given a started service", t, func() {
		svc, _ := newTestService(t)

		Convey("Then stats should reflect the running state", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["activeRounds"], ShouldEqual, 0)
		})

		Convey("And a second Start should be a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Rounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with no registered players", t, func() {
		svc, _ := newTestService(t)

		Convey("When starting a round without an opponent", func() {
			view, err := svc.StartRound(ctx, "alice", "", "")

			Convey("Then a placeholder opponent should be substituted", func() {
				So(err, ShouldBeNil)
				So(view.Phase, ShouldEqual, "armed")
				So(view.RemainingSeconds, ShouldEqual, 3)
				So(view.OpponentID, ShouldStartWith, "bot-")
				So(view.OpponentName, ShouldNotBeEmpty)
			})

			Convey("And a second concurrent round should be rejected", func() {
				So(err, ShouldBeNil)
				_, err := svc.StartRound(ctx, "alice", "", "")
				So(errors.Is(err, duel.ErrRoundActive), ShouldBeTrue)
			})

			Convey("And GetRound should return the same round", func() {
				So(err, ShouldBeNil)
				got, err := svc.GetRound(ctx, "alice")
				So(err, ShouldBeNil)
				So(got.RoundID, ShouldEqual, view.RoundID)
			})
		})

		Convey("When clicking without a round", func() {
			_, _, err := svc.Click(ctx, "nobody")

			Convey("Then it should report no active round", func() {
				So(errors.Is(err, duel.ErrNoRound), ShouldBeTrue)
			})
		})

		Convey("When cancelling an armed round", func() {
			_, err := svc.StartRound(ctx, "bob", "", "")
			So(err, ShouldBeNil)

			cancelled, err := svc.CancelRound(ctx, "bob")

			Convey("Then the round should be discarded without an outcome", func() {
				So(err, ShouldBeNil)
				So(cancelled, ShouldBeTrue)

				_, err := svc.GetRound(ctx, "bob")
				So(errors.Is(err, duel.ErrNoRound), ShouldBeTrue)
			})
		})
	})
}

func TestService_RoundSettlement(t *testing.T) {
	ctx := context.Background()

	Convey("Given a round played to the end of the countdown", t, func() {
		svc, bank := newTestService(t)

		_, err := svc.StartRound(ctx, "carol", "", "")
		So(err, ShouldBeNil)

		// The starting tap is not scored; one extra click scores 1.
		result, view, err := svc.Click(ctx, "carol")
		So(err, ShouldBeNil)
		So(result.Started, ShouldBeTrue)
		So(view.RemainingSeconds, ShouldEqual, 2)

		result, _, err = svc.Click(ctx, "carol")
		So(err, ShouldBeNil)
		So(result.Counted, ShouldBeTrue)

		clock := bank.last()
		So(clock, ShouldNotBeNil)
		clock.Tick()
		clock.Tick()

		Convey("Then the round should settle as a loss against the simulated score", func() {
			ok := waitFor(t, 2*time.Second, func() bool {
				got, err := svc.GetRound(ctx, "carol")
				return err == nil && got.Outcome != nil
			})
			So(ok, ShouldBeTrue)

			got, err := svc.GetRound(ctx, "carol")
			So(err, ShouldBeNil)
			So(got.Phase, ShouldEqual, "settled")
			So(got.Outcome.SelfScore, ShouldEqual, 1)
			So(got.Outcome.OpponentScore, ShouldBeBetweenOrEqual, 20, 70)
			So(got.Outcome.IsWinner, ShouldBeFalse)
			So(got.Outcome.Reward, ShouldEqual, -1)

			Convey("And the report pipeline should apply the loss to the ledger", func() {
				ok := waitFor(t, 2*time.Second, func() bool {
					entry, err := svc.Rank(ctx, "carol")
					return err == nil && entry.Kaki == -1
				})
				So(ok, ShouldBeTrue)
			})

			Convey("And the match should land in the history", func() {
				ok := waitFor(t, 2*time.Second, func() bool {
					records, err := svc.RecentMatches(ctx, "carol", 10)
					return err == nil && len(records) == 1
				})
				So(ok, ShouldBeTrue)

				records, err := svc.RecentMatches(ctx, "carol", 10)
				So(err, ShouldBeNil)
				So(records[0].PlayerScore, ShouldEqual, 1)
				So(records[0].Reward, ShouldEqual, -1)
			})
		})
	})
}

func TestService_ChallengeRounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given two registered players with a scored challenge", t, func() {
		svc, bank := newTestService(t)

		_, err := svc.SaveProfile(ctx, model.Profile{ID: "ana", DisplayName: "Ana"})
		So(err, ShouldBeNil)
		_, err = svc.SaveProfile(ctx, model.Profile{ID: "ben", DisplayName: "Ben"})
		So(err, ShouldBeNil)

		ch, err := svc.CreateChallenge(ctx, "ana", "ben")
		So(err, ShouldBeNil)

		_, err = svc.SubmitChallengeScore(ctx, ch.ID, "ben", 2)
		So(err, ShouldBeNil)

		Convey("When ana plays the challenge round and outscores the recording", func() {
			view, err := svc.StartRound(ctx, "ana", "", ch.ID)
			So(err, ShouldBeNil)
			So(view.OpponentID, ShouldEqual, "ben")
			So(view.OpponentName, ShouldEqual, "Ben")

			// Starting tap plus three scored clicks.
			for i := 0; i < 4; i++ {
				_, _, err := svc.Click(ctx, "ana")
				So(err, ShouldBeNil)
			}

			clock := bank.last()
			So(clock, ShouldNotBeNil)
			clock.Tick()
			clock.Tick()

			Convey("Then the recorded score should decide a win", func() {
				ok := waitFor(t, 2*time.Second, func() bool {
					got, err := svc.GetRound(ctx, "ana")
					return err == nil && got.Outcome != nil
				})
				So(ok, ShouldBeTrue)

				got, err := svc.GetRound(ctx, "ana")
				So(err, ShouldBeNil)
				So(got.Outcome.SelfScore, ShouldEqual, 3)
				So(got.Outcome.OpponentScore, ShouldEqual, 2)
				So(got.Outcome.IsWinner, ShouldBeTrue)
				So(got.Outcome.Reward, ShouldEqual, 3)

				ok = waitFor(t, 2*time.Second, func() bool {
					entry, err := svc.Rank(ctx, "ana")
					return err == nil && entry.Kaki == 3
				})
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When ben replays the score submission with a new value", func() {
			got, err := svc.SubmitChallengeScore(ctx, ch.ID, "ben", 50)

			Convey("Then the first recorded score stands", func() {
				So(err, ShouldBeNil)
				So(got.OpponentScore, ShouldNotBeNil)
				So(*got.OpponentScore, ShouldEqual, 2)
			})
		})

		Convey("When a stranger tries to play the challenge", func() {
			_, err := svc.StartRound(ctx, "mallory", "", ch.ID)

			Convey("Then the round should be refused", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a player with a configured salary", t, func() {
		svc, _ := newTestService(t)

		_, err := svc.SaveProfile(ctx, model.Profile{
			ID:                 "dave",
			DisplayName:        "Dave",
			MonthlySalaryCents: 316_800,
			WorkDaysPerMonth:   22,
			WorkHoursPerDay:    8,
		})
		So(err, ShouldBeNil)

		startedAt := time.Now().Add(-10 * time.Minute)

		Convey("When recording a ten minute session", func() {
			sess, duplicate, err := svc.RecordSession(ctx, "sess-1", "dave", startedAt, 600)

			Convey("Then it should be priced from the salary", func() {
				So(err, ShouldBeNil)
				So(duplicate, ShouldBeFalse)
				So(sess.EarningsCents, ShouldEqual, 300)
				So(sess.KakiAwarded, ShouldEqual, 1)
			})

			Convey("And replaying the same session id should be a duplicate", func() {
				So(err, ShouldBeNil)
				_, duplicate, err := svc.RecordSession(ctx, "sess-1", "dave", startedAt, 600)
				So(err, ShouldBeNil)
				So(duplicate, ShouldBeTrue)

				stats, err := svc.SessionStats(ctx, "dave")
				So(err, ShouldBeNil)
				So(stats.Sessions, ShouldEqual, 1)
				So(stats.TotalEarningsCents, ShouldEqual, 300)
			})

			Convey("And the session award should reach the leaderboard", func() {
				So(err, ShouldBeNil)
				entry, err := svc.Rank(ctx, "dave")
				So(err, ShouldBeNil)
				So(entry.Kaki, ShouldEqual, 1)
			})
		})

		Convey("When recording a session for a player without a profile", func() {
			sess, duplicate, err := svc.RecordSession(ctx, "sess-2", "ghost", startedAt, 3600)

			Convey("Then the default salary should apply", func() {
				So(err, ShouldBeNil)
				So(duplicate, ShouldBeFalse)
				// 300000 cents over 22*8h months: ~4.73 cents/s.
				So(sess.EarningsCents, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestService_DirectoryAndLeaderboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with several registered players", t, func() {
		svc, _ := newTestService(t)

		for _, p := range []model.Profile{
			{ID: "p1", DisplayName: "One"},
			{ID: "p2", DisplayName: "Two"},
			{ID: "p3", DisplayName: "Three"},
		} {
			_, err := svc.SaveProfile(ctx, p)
			So(err, ShouldBeNil)
		}

		Convey("When listing opponents for p1", func() {
			opponents, err := svc.Opponents(ctx, "p1", 10)

			Convey("Then p1 should be excluded", func() {
				So(err, ShouldBeNil)
				So(len(opponents), ShouldEqual, 2)
				for _, o := range opponents {
					So(o.ID, ShouldNotEqual, "p1")
				}
			})
		})

		Convey("When sessions build up kaki balances", func() {
			startedAt := time.Now()
			_, _, err := svc.RecordSession(ctx, "s-p1", "p1", startedAt, 60)
			So(err, ShouldBeNil)
			_, _, err = svc.RecordSession(ctx, "s-p2a", "p2", startedAt, 60)
			So(err, ShouldBeNil)
			_, _, err = svc.RecordSession(ctx, "s-p2b", "p2", startedAt, 60)
			So(err, ShouldBeNil)

			Convey("Then TopN should rank p2 first", func() {
				entries, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].PlayerID, ShouldEqual, "p2")
				So(entries[0].Kaki, ShouldEqual, 2)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].PlayerID, ShouldEqual, "p1")
			})
		})
	})
}
