package storage

import (
	"context"
	"time"
)

// SaveBalance persists a player's current kaki balance. The in-memory
// ledger is authoritative at runtime; these rows exist to reseed it on
// restart.
func (s *Store) SaveBalance(ctx context.Context, playerID string, kaki int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances(player_id, kaki, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			kaki = excluded.kaki,
			updated_at = excluded.updated_at`,
		playerID, kaki, time.Now().UTC())
	return err
}

// LoadBalances returns every persisted balance keyed by player ID.
func (s *Store) LoadBalances(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id, kaki FROM balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			playerID string
			kaki     int64
		)
		if err := rows.Scan(&playerID, &kaki); err != nil {
			return nil, err
		}
		out[playerID] = kaki
	}
	return out, rows.Err()
}
