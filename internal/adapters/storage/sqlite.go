// Package storage persists profiles, sessions, match history, challenges
// and kaki balances in SQLite. The pure-Go driver keeps the server a
// single static binary.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store wraps the SQLite database holding all durable state.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			monthly_salary_cents INTEGER NOT NULL DEFAULT 0,
			work_days_per_month INTEGER NOT NULL DEFAULT 0,
			work_hours_per_day REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_seconds INTEGER NOT NULL,
			earnings_cents INTEGER NOT NULL,
			kaki_awarded INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player_id, created_at DESC);`,

		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			player_score INTEGER NOT NULL,
			opponent_id TEXT NOT NULL,
			opponent_name TEXT NOT NULL DEFAULT '',
			opponent_score INTEGER NOT NULL,
			winner_id TEXT NOT NULL,
			reward INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_player ON matches(player_id, created_at DESC);`,

		`CREATE TABLE IF NOT EXISTS balances (
			player_id TEXT PRIMARY KEY,
			kaki INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS challenges (
			id TEXT PRIMARY KEY,
			challenger_id TEXT NOT NULL,
			opponent_id TEXT NOT NULL,
			status TEXT NOT NULL,
			challenger_score INTEGER,
			opponent_score INTEGER,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_challenger ON challenges(challenger_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_opponent ON challenges(opponent_id, created_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
