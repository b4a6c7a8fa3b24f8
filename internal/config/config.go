// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// RoundDurationSeconds is the duel countdown length.
	RoundDurationSeconds int `koanf:"round_duration_seconds"`

	// RewardWin and RewardLoss are the kaki deltas applied per settled
	// duel. RewardLoss is negative.
	RewardWin  int64 `koanf:"reward_win"`
	RewardLoss int64 `koanf:"reward_loss"`

	// OpponentScoreMin and OpponentScoreMax bound simulated opponent
	// scores (inclusive).
	OpponentScoreMin int `koanf:"opponent_score_min"`
	OpponentScoreMax int `koanf:"opponent_score_max"`

	// ReportQueueSize bounds the in-memory settled-round report queue.
	ReportQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of report workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the session deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// SessionKakiAward is the fixed kaki granted per completed session.
	SessionKakiAward int64 `koanf:"session_kaki_award"`

	// Default salary parameters for profiles that never configured one.
	DefaultMonthlySalaryCents int64   `koanf:"default_monthly_salary_cents"`
	DefaultWorkDaysPerMonth   int     `koanf:"default_work_days_per_month"`
	DefaultWorkHoursPerDay    float64 `koanf:"default_work_hours_per_day"`

	// MetricsRefreshSeconds sets the period of the system metrics job.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	// LedgerSnapshotSeconds sets the leaderboard snapshot publish period.
	LedgerSnapshotSeconds int `koanf:"ledger_snapshot_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":8080",
		DBPath:                    "wctimer.db",
		RoundDurationSeconds:      8,
		RewardWin:                 3,
		RewardLoss:                -1,
		OpponentScoreMin:          20,
		OpponentScoreMax:          70,
		ReportQueueSize:           100_000,
		WorkerCount:               runtime.NumCPU() * 2,
		DedupeSize:                500_000,
		MaxLeaderboardLimit:       100,
		SessionKakiAward:          1,
		DefaultMonthlySalaryCents: 300_000,
		DefaultWorkDaysPerMonth:   22,
		DefaultWorkHoursPerDay:    8,
		MetricsRefreshSeconds:     5,
		LedgerSnapshotSeconds:     1,
	}
}
