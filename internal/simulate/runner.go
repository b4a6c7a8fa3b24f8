package simulate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/wctimer/server/pkg/logger"
)

// settlePollInterval is how often a worker re-reads a running round.
const settlePollInterval = 250 * time.Millisecond

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting traffic simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("sessionsPerPlayer", config.SessionsPerPlayer),
		logger.Int("roundsPerPlayer", config.RoundsPerPlayer),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	players := generatePlayers(config.Players)

	if err := registerPlayers(ctx, client, config, players, stats); err != nil {
		return fmt.Errorf("player registration failed: %w", err)
	}

	if err := submitSessions(ctx, client, config, players, stats); err != nil {
		return fmt.Errorf("session submission failed: %w", err)
	}

	if err := playRounds(ctx, client, config, players, stats); err != nil {
		return fmt.Errorf("round play failed: %w", err)
	}

	if err := verifyLeaderboard(ctx, client, config, players, stats); err != nil {
		return fmt.Errorf("leaderboard verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "simulation completed",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("sessionsSubmitted", stats.SessionsSubmitted),
		logger.Int("sessionsDuplicate", stats.SessionsDuplicate),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("roundsPlayed", stats.RoundsPlayed),
		logger.Int("roundsSettled", stats.RoundsSettled),
		logger.Int("roundsFailed", stats.RoundsFailed),
		logger.Int("clicksSent", stats.ClicksSent),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
	)
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// forEachPlayer fans players out across config.Workers goroutines.
func forEachPlayer(ctx context.Context, config *Config, players []Player, fn func(p Player)) {
	playerChan := make(chan Player, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range playerChan {
				select {
				case <-ctx.Done():
					return
				default:
					fn(p)
				}
			}
		}()
	}

feed:
	for _, p := range players {
		select {
		case <-ctx.Done():
			break feed
		case playerChan <- p:
		}
	}
	close(playerChan)
	wg.Wait()
}

// registerPlayers upserts a profile per generated player.
func registerPlayers(ctx context.Context, client *HTTPClient, config *Config, players []Player, stats *Stats) error {
	var registered int64

	forEachPlayer(ctx, config, players, func(p Player) {
		body := profileRequest{
			DisplayName:        p.DisplayName,
			MonthlySalaryCents: p.MonthlySalaryCents,
			WorkDaysPerMonth:   22,
			WorkHoursPerDay:    8,
		}
		resp, err := client.Put(ctx, config.BaseURL+"/profiles/"+p.ID, body)
		if err != nil {
			return
		}
		drainAndClose(resp)
		if resp.StatusCode == http.StatusOK {
			atomic.AddInt64(&registered, 1)
		}
	})

	stats.PlayersRegistered = int(atomic.LoadInt64(&registered))
	if stats.PlayersRegistered != len(players) {
		return fmt.Errorf("registered %d of %d players", stats.PlayersRegistered, len(players))
	}
	return nil
}

// submitSessions posts completed timer sessions, replaying every Nth one to
// exercise server-side deduplication.
func submitSessions(ctx context.Context, client *HTTPClient, config *Config, players []Player, stats *Stats) error {
	var (
		submitted int64
		duplicate int64
		failed    int64
		counter   int64
	)

	forEachPlayer(ctx, config, players, func(p Player) {
		faker := gofakeit.New(0)
		for i := 0; i < config.SessionsPerPlayer; i++ {
			req := sessionRequest{
				SessionID:       uuid.NewString(),
				PlayerID:        p.ID,
				StartedAt:       time.Now().UTC().Format(time.RFC3339),
				DurationSeconds: sessionDuration(faker),
			}

			n := atomic.AddInt64(&counter, 1)
			attempts := 1
			if config.DuplicateEveryN > 0 && n%int64(config.DuplicateEveryN) == 0 {
				attempts = 2
			}

			for a := 0; a < attempts; a++ {
				resp, err := client.Post(ctx, config.BaseURL+"/sessions", req)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				var ack sessionAck
				if err := decodeResponse(resp, &ack); err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&submitted, 1)
				if ack.Duplicate {
					atomic.AddInt64(&duplicate, 1)
				}
			}
		}
	})

	stats.SessionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SessionsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))
	return nil
}

// playRounds runs full duel rounds: start, click, then poll to settlement.
func playRounds(ctx context.Context, client *HTTPClient, config *Config, players []Player, stats *Stats) error {
	var (
		played  int64
		settled int64
		failed  int64
		clicks  int64
	)

	forEachPlayer(ctx, config, players, func(p Player) {
		for i := 0; i < config.RoundsPerPlayer; i++ {
			if err := playOneRound(ctx, client, config, p, &clicks); err != nil {
				atomic.AddInt64(&failed, 1)
				continue
			}
			atomic.AddInt64(&played, 1)

			if waitForSettlement(ctx, client, config, p) {
				atomic.AddInt64(&settled, 1)
			}
		}
	})

	stats.RoundsPlayed = int(atomic.LoadInt64(&played))
	stats.RoundsSettled = int(atomic.LoadInt64(&settled))
	stats.RoundsFailed = int(atomic.LoadInt64(&failed))
	stats.ClicksSent = int(atomic.LoadInt64(&clicks))
	return nil
}

func playOneRound(ctx context.Context, client *HTTPClient, config *Config, p Player, clicks *int64) error {
	resp, err := client.Post(ctx, config.BaseURL+"/rounds", startRoundRequest{PlayerID: p.ID})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("start round returned %d", resp.StatusCode)
	}

	// The first tap starts the countdown, the rest score.
	clickURL := config.BaseURL + "/rounds/" + p.ID + "/clicks"
	for c := 0; c <= config.ClicksPerRound; c++ {
		resp, err := client.Post(ctx, clickURL, struct{}{})
		if err != nil {
			return err
		}
		drainAndClose(resp)
		atomic.AddInt64(clicks, 1)
	}
	return nil
}

func waitForSettlement(ctx context.Context, client *HTTPClient, config *Config, p Player) bool {
	deadline := time.Now().Add(config.SettleWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(settlePollInterval):
		}

		resp, err := client.Get(ctx, config.BaseURL+"/rounds/"+p.ID)
		if err != nil {
			continue
		}
		var view roundView
		if err := decodeResponse(resp, &view); err != nil {
			continue
		}
		if view.Outcome != nil {
			return true
		}
	}
	return false
}

// verifyLeaderboard checks the final leaderboard is ordered and that every
// sampled player has a rank.
func verifyLeaderboard(ctx context.Context, client *HTTPClient, config *Config, players []Player, stats *Stats) error {
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.LeaderboardLimit)
	resp, err := client.Get(ctx, url)
	if err != nil {
		return err
	}

	var entries []leaderboardEntry
	if err := decodeResponse(resp, &entries); err != nil {
		return err
	}
	stats.LeaderboardEntries = len(entries)

	for i := 1; i < len(entries); i++ {
		if entries[i].Kaki > entries[i-1].Kaki {
			return fmt.Errorf("leaderboard out of order at position %d", i)
		}
		if entries[i].Rank < entries[i-1].Rank {
			return fmt.Errorf("ranks not monotonic at position %d", i)
		}
	}

	// Spot-check the first few players' individual ranks.
	sample := players
	if len(sample) > 5 {
		sample = sample[:5]
	}
	for _, p := range sample {
		resp, err := client.Get(ctx, config.BaseURL+"/rank/"+p.ID)
		if err != nil {
			return err
		}
		var entry leaderboardEntry
		if err := decodeResponse(resp, &entry); err != nil {
			return err
		}
		if entry.PlayerID != p.ID {
			return fmt.Errorf("rank lookup returned wrong player: %s", entry.PlayerID)
		}
	}
	return nil
}
