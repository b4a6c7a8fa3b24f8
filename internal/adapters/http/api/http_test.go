package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wctimer/server/internal/adapters/http/api"
	"github.com/wctimer/server/internal/adapters/repository"
	"github.com/wctimer/server/internal/adapters/storage"
	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/internal/domain/model"
	"github.com/wctimer/server/internal/domain/types"
)

// mockDependencies implements api.Dependencies with canned responses.
type mockDependencies struct {
	roundView   types.RoundView
	roundErr    error
	clickResult duel.ClickResult
	cancelled   bool

	session      model.Session
	duplicate    bool
	sessionErr   error
	sessionStats model.SessionStats

	topN    []types.Entry
	topNErr error
	rank    types.Entry
	rankErr error

	opponents []model.Opponent

	challenge    model.Challenge
	challenges   []model.Challenge
	challengeErr error

	profile    model.Profile
	profileErr error

	matches []model.MatchRecord

	stats map[string]interface{}
}

func (m *mockDependencies) StartRound(_ context.Context, playerID, opponentID, challengeID string) (types.RoundView, error) {
	return m.roundView, m.roundErr
}

func (m *mockDependencies) GetRound(_ context.Context, playerID string) (types.RoundView, error) {
	return m.roundView, m.roundErr
}

func (m *mockDependencies) Click(_ context.Context, playerID string) (duel.ClickResult, types.RoundView, error) {
	return m.clickResult, m.roundView, m.roundErr
}

func (m *mockDependencies) CancelRound(_ context.Context, playerID string) (bool, error) {
	return m.cancelled, m.roundErr
}

func (m *mockDependencies) RecordSession(_ context.Context, sessionID, playerID string, startedAt time.Time, durationSeconds int) (model.Session, bool, error) {
	return m.session, m.duplicate, m.sessionErr
}

func (m *mockDependencies) SessionStats(_ context.Context, playerID string) (model.SessionStats, error) {
	return m.sessionStats, m.sessionErr
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, playerID string) (types.Entry, error) {
	return m.rank, m.rankErr
}

func (m *mockDependencies) Opponents(_ context.Context, excludeID string, limit int) ([]model.Opponent, error) {
	return m.opponents, nil
}

func (m *mockDependencies) CreateChallenge(_ context.Context, challengerID, opponentID string) (model.Challenge, error) {
	return m.challenge, m.challengeErr
}

func (m *mockDependencies) GetChallenge(_ context.Context, id string) (model.Challenge, error) {
	return m.challenge, m.challengeErr
}

func (m *mockDependencies) ListChallenges(_ context.Context, playerID string, limit int) ([]model.Challenge, error) {
	return m.challenges, m.challengeErr
}

func (m *mockDependencies) SubmitChallengeScore(_ context.Context, challengeID, playerID string, score int) (model.Challenge, error) {
	return m.challenge, m.challengeErr
}

func (m *mockDependencies) SaveProfile(_ context.Context, p model.Profile) (model.Profile, error) {
	if m.profileErr != nil {
		return model.Profile{}, m.profileErr
	}
	return p, nil
}

func (m *mockDependencies) GetProfile(_ context.Context, id string) (model.Profile, error) {
	return m.profile, m.profileErr
}

func (m *mockDependencies) RecentMatches(_ context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	return m.matches, nil
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return m.stats
}

func newTestServer(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, 100).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRoundsEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{
			roundView: types.RoundView{
				RoundID:          "round-1",
				PlayerID:         "p1",
				OpponentID:       "p2",
				OpponentName:     "second",
				Phase:            "armed",
				RemainingSeconds: 8,
			},
		}
		mux := newTestServer(deps)

		Convey("When starting a round", func() {
			rec := doJSON(mux, http.MethodPost, "/rounds", map[string]string{"player_id": "p1"})

			Convey("Then the round view comes back with 201", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)

				var view types.RoundView
				So(json.Unmarshal(rec.Body.Bytes(), &view), ShouldBeNil)
				So(view.RoundID, ShouldEqual, "round-1")
				So(view.Phase, ShouldEqual, "armed")
			})
		})

		Convey("When starting a round without a player", func() {
			rec := doJSON(mux, http.MethodPost, "/rounds", map[string]string{})

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a round is already active", func() {
			deps.roundErr = duel.ErrRoundActive
			rec := doJSON(mux, http.MethodPost, "/rounds", map[string]string{"player_id": "p1"})

			Convey("Then 409 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When fetching the active round", func() {
			rec := doJSON(mux, http.MethodGet, "/rounds/p1", nil)

			Convey("Then the view is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When no round is active", func() {
			deps.roundErr = duel.ErrNoRound
			rec := doJSON(mux, http.MethodGet, "/rounds/p1", nil)

			Convey("Then 404 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When clicking", func() {
			deps.clickResult = duel.ClickResult{Started: true}
			rec := doJSON(mux, http.MethodPost, "/rounds/p1/clicks", nil)

			Convey("Then the click ack carries the view", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var ack struct {
					Started bool            `json:"started"`
					Counted bool            `json:"counted"`
					Round   types.RoundView `json:"round"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Started, ShouldBeTrue)
				So(ack.Counted, ShouldBeFalse)
				So(ack.Round.PlayerID, ShouldEqual, "p1")
			})
		})

		Convey("When cancelling", func() {
			deps.cancelled = true
			rec := doJSON(mux, http.MethodDelete, "/rounds/p1", nil)

			Convey("Then the cancellation is acknowledged", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"cancelled":true`)
			})
		})
	})
}

func TestSessionsEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{
			session: model.Session{ID: "sess-1", PlayerID: "p1", EarningsCents: 300, KakiAwarded: 1},
		}
		mux := newTestServer(deps)

		validBody := map[string]any{
			"session_id":       "sess-1",
			"player_id":        "p1",
			"started_at":       time.Now().UTC().Format(time.RFC3339),
			"duration_seconds": 600,
		}

		Convey("When posting a session", func() {
			rec := doJSON(mux, http.MethodPost, "/sessions", validBody)

			Convey("Then earnings are returned with 201", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Body.String(), ShouldContainSubstring, `"earnings_cents":300`)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":false`)
			})
		})

		Convey("When posting a duplicate session", func() {
			deps.duplicate = true
			rec := doJSON(mux, http.MethodPost, "/sessions", validBody)

			Convey("Then 200 with the duplicate flag is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the timestamp is malformed", func() {
			bad := map[string]any{
				"session_id":       "sess-1",
				"player_id":        "p1",
				"started_at":       "yesterday",
				"duration_seconds": 600,
			}
			rec := doJSON(mux, http.MethodPost, "/sessions", bad)

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching session stats", func() {
			deps.sessionStats = model.SessionStats{PlayerID: "p1", Sessions: 4, TotalEarningsCents: 1200}
			rec := doJSON(mux, http.MethodGet, "/sessions/p1/stats", nil)

			Convey("Then the aggregate is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"sessions":4`)
				So(rec.Body.String(), ShouldContainSubstring, `"total_earnings_cents":1200`)
			})
		})
	})
}

func TestLeaderboardEndpoints(t *testing.T) {
	Convey("Given an API server with a populated board", t, func() {
		deps := &mockDependencies{
			topN: []types.Entry{
				{Rank: 1, PlayerID: "p1", Kaki: 30},
				{Rank: 2, PlayerID: "p2", Kaki: 10},
			},
			rank: types.Entry{Rank: 2, PlayerID: "p2", Kaki: 10},
		}
		mux := newTestServer(deps)

		Convey("When fetching the leaderboard", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard?limit=2", nil)

			Convey("Then entries come back in order", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entries []types.Entry
				So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].PlayerID, ShouldEqual, "p1")
			})
		})

		Convey("When the limit is missing", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard?limit=1000", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching a rank", func() {
			rec := doJSON(mux, http.MethodGet, "/rank/p2", nil)

			Convey("Then the entry is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"rank":2`)
			})
		})

		Convey("When the player is unknown", func() {
			deps.rankErr = repository.ErrNotFound
			rec := doJSON(mux, http.MethodGet, "/rank/ghost", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestChallengeEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{
			challenge: model.Challenge{
				ID:           "ch-1",
				ChallengerID: "p1",
				OpponentID:   "p2",
				Status:       model.ChallengePending,
			},
		}
		mux := newTestServer(deps)

		Convey("When creating a challenge", func() {
			rec := doJSON(mux, http.MethodPost, "/challenges", map[string]string{
				"challenger_id": "p1",
				"opponent_id":   "p2",
			})

			Convey("Then it is returned with 201", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"pending"`)
			})
		})

		Convey("When challenging yourself", func() {
			rec := doJSON(mux, http.MethodPost, "/challenges", map[string]string{
				"challenger_id": "p1",
				"opponent_id":   "p1",
			})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When submitting a score as a stranger", func() {
			deps.challengeErr = storage.ErrNotParticipant
			rec := doJSON(mux, http.MethodPost, "/challenges/ch-1/score", map[string]any{
				"player_id": "p9",
				"score":     10,
			})
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When fetching a missing challenge", func() {
			deps.challengeErr = storage.ErrNotFound
			rec := doJSON(mux, http.MethodGet, "/challenges/nope", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestProfileEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{
			profile: model.Profile{ID: "p1", DisplayName: "first", MonthlySalaryCents: 300_000},
		}
		mux := newTestServer(deps)

		Convey("When saving a profile", func() {
			rec := doJSON(mux, http.MethodPut, "/profiles/p1", map[string]any{
				"display_name":         "first",
				"monthly_salary_cents": 300_000,
				"work_days_per_month":  22,
				"work_hours_per_day":   8,
			})

			Convey("Then the stored profile is echoed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"id":"p1"`)
			})
		})

		Convey("When the salary is negative", func() {
			rec := doJSON(mux, http.MethodPut, "/profiles/p1", map[string]any{
				"display_name":         "first",
				"monthly_salary_cents": -5,
			})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching a profile", func() {
			rec := doJSON(mux, http.MethodGet, "/profiles/p1", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestStatsAndMatches(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{
			stats: map[string]interface{}{"active_rounds": 2},
			matches: []model.MatchRecord{
				{ID: "round-1", PlayerID: "p1", WinnerID: "p1", Reward: 3},
			},
		}
		mux := newTestServer(deps)

		Convey("When fetching stats", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "active_rounds")
		})

		Convey("When fetching match history", func() {
			rec := doJSON(mux, http.MethodGet, "/matches?player_id=p1", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"winner_id":"p1"`)
		})

		Convey("When match history is requested without a player", func() {
			rec := doJSON(mux, http.MethodGet, "/matches", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
