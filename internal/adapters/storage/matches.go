package storage

import (
	"context"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

// AppendMatch stores one row of the append-only match history.
// Duplicate round IDs return ErrDuplicateRecord.
func (s *Store) AppendMatch(ctx context.Context, m model.MatchRecord) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches(id, player_id, player_score, opponent_id, opponent_name, opponent_score, winner_id, reward, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.PlayerID, m.PlayerScore, m.OpponentID, m.OpponentName, m.OpponentScore, m.WinnerID, m.Reward, createdAt)
	if err != nil && isConstraintErr(err) {
		return ErrDuplicateRecord
	}
	return err
}

// RecentMatches returns a player's latest matches, newest first.
func (s *Store) RecentMatches(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, player_score, opponent_id, opponent_name, opponent_score, winner_id, reward, created_at
		FROM matches WHERE player_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchRecord
	for rows.Next() {
		var m model.MatchRecord
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.PlayerScore, &m.OpponentID, &m.OpponentName, &m.OpponentScore, &m.WinnerID, &m.Reward, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
