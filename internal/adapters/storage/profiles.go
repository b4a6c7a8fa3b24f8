package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wctimer/server/internal/domain/model"
)

// UpsertProfile creates or updates a player profile. CreatedAt is kept
// from the first write; everything else follows the caller.
func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles(id, display_name, monthly_salary_cents, work_days_per_month, work_hours_per_day, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			monthly_salary_cents = excluded.monthly_salary_cents,
			work_days_per_month = excluded.work_days_per_month,
			work_hours_per_day = excluded.work_hours_per_day,
			updated_at = excluded.updated_at`,
		p.ID, p.DisplayName, p.MonthlySalaryCents, p.WorkDaysPerMonth, p.WorkHoursPerDay, now, now)
	return err
}

// GetProfile returns the profile for a player.
// Returns ErrNotFound if the player never saved one.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, monthly_salary_cents, work_days_per_month, work_hours_per_day, created_at, updated_at
		FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.DisplayName, &p.MonthlySalaryCents, &p.WorkDaysPerMonth, &p.WorkHoursPerDay, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// ListOpponents returns up to limit profiles excluding the given player,
// most recently active first. It feeds the opponent directory.
func (s *Store) ListOpponents(ctx context.Context, excludeID string, limit int) ([]model.Opponent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name FROM profiles
		WHERE id != ?
		ORDER BY updated_at DESC
		LIMIT ?`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Opponent
	for rows.Next() {
		var o model.Opponent
		if err := rows.Scan(&o.ID, &o.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
