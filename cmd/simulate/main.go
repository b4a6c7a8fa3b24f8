package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/wctimer/server/internal/simulate"
	"github.com/wctimer/server/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers           = 50
	defaultSessionsPerPlayer = 3
	defaultRoundsPerPlayer   = 1
	defaultClicksPerRound    = 30
	defaultWorkerMultiplier  = 2
	defaultTimeout           = 10 * time.Second
	defaultSettleWait        = 15 * time.Second
	defaultDuplicateEveryN   = 10
	defaultLeaderboardLimit  = 50
	defaultRunTimeout        = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		players  = flag.Int("players", defaultPlayers, "Number of fake players to register")
		sessions = flag.Int("sessions", defaultSessionsPerPlayer, "Sessions per player")
		rounds   = flag.Int("rounds", defaultRoundsPerPlayer, "Duel rounds per player")
		clicks   = flag.Int("clicks", defaultClicksPerRound, "Scored clicks per round")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkerMultiplier, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", defaultSettleWait, "How long to wait for a round to settle")
		topN     = flag.Int("top", defaultLeaderboardLimit, "Leaderboard entries to fetch for verification")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:           *baseURL,
		Players:           *players,
		SessionsPerPlayer: *sessions,
		RoundsPerPlayer:   *rounds,
		ClicksPerRound:    *clicks,
		Workers:           *workers,
		Timeout:           *timeout,
		SettleWait:        *wait,
		DuplicateEveryN:   defaultDuplicateEveryN,
		LeaderboardLimit:  *topN,
		Verbose:           *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
