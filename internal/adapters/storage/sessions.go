package storage

import (
	"context"
	"strings"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

// AppendSession stores a completed timer session. The session ID is client
// generated; a duplicate insert returns ErrDuplicateRecord so retries stay
// idempotent even across restarts.
func (s *Store) AppendSession(ctx context.Context, sess model.Session) error {
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, player_id, started_at, duration_seconds, earnings_cents, kaki_awarded, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.PlayerID, sess.StartedAt, sess.DurationSeconds, sess.EarningsCents, sess.KakiAwarded, createdAt)
	if err != nil && isConstraintErr(err) {
		return ErrDuplicateRecord
	}
	return err
}

// SessionStats aggregates a player's recorded sessions.
func (s *Store) SessionStats(ctx context.Context, playerID string) (model.SessionStats, error) {
	stats := model.SessionStats{PlayerID: playerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0), COALESCE(SUM(earnings_cents), 0), COALESCE(SUM(kaki_awarded), 0)
		FROM sessions WHERE player_id = ?`, playerID).
		Scan(&stats.Sessions, &stats.TotalSeconds, &stats.TotalEarningsCents, &stats.TotalKakiAwarded)
	return stats, err
}

// RecentSessions returns a player's latest sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, playerID string, limit int) ([]model.Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, started_at, duration_seconds, earnings_cents, kaki_awarded, created_at
		FROM sessions WHERE player_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.PlayerID, &sess.StartedAt, &sess.DurationSeconds, &sess.EarningsCents, &sess.KakiAwarded, &sess.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// isConstraintErr reports whether err is a SQLite uniqueness violation.
func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
