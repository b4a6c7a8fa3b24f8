package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wctimer/server/internal/domain/model"
)

// CreateChallenge opens a pending challenge between two real accounts.
func (s *Store) CreateChallenge(ctx context.Context, challengerID, opponentID string) (model.Challenge, error) {
	now := time.Now().UTC()
	c := model.Challenge{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		Status:       model.ChallengePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges(id, challenger_id, opponent_id, status, challenger_score, opponent_score, created_at, updated_at)
		VALUES(?, ?, ?, ?, NULL, NULL, ?, ?)`,
		c.ID, c.ChallengerID, c.OpponentID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return model.Challenge{}, err
	}
	return c, nil
}

// GetChallenge returns a challenge by ID.
func (s *Store) GetChallenge(ctx context.Context, id string) (model.Challenge, error) {
	var (
		c               model.Challenge
		challengerScore sql.NullInt64
		opponentScore   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, challenger_id, opponent_id, status, challenger_score, opponent_score, created_at, updated_at
		FROM challenges WHERE id = ?`, id).
		Scan(&c.ID, &c.ChallengerID, &c.OpponentID, &c.Status, &challengerScore, &opponentScore, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Challenge{}, ErrNotFound
	}
	if err != nil {
		return model.Challenge{}, err
	}
	if challengerScore.Valid {
		v := int(challengerScore.Int64)
		c.ChallengerScore = &v
	}
	if opponentScore.Valid {
		v := int(opponentScore.Int64)
		c.OpponentScore = &v
	}
	return c, nil
}

// ListChallenges returns challenges where the player is on either side,
// newest first.
func (s *Store) ListChallenges(ctx context.Context, playerID string, limit int) ([]model.Challenge, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, challenger_id, opponent_id, status, challenger_score, opponent_score, created_at, updated_at
		FROM challenges
		WHERE challenger_id = ? OR opponent_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, playerID, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		var (
			c               model.Challenge
			challengerScore sql.NullInt64
			opponentScore   sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.ChallengerID, &c.OpponentID, &c.Status, &challengerScore, &opponentScore, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if challengerScore.Valid {
			v := int(challengerScore.Int64)
			c.ChallengerScore = &v
		}
		if opponentScore.Valid {
			v := int(opponentScore.Int64)
			c.OpponentScore = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SubmitChallengeScore records one side's click count on a challenge. The
// challenge flips to scored once both sides have submitted.
func (s *Store) SubmitChallengeScore(ctx context.Context, challengeID, playerID string, score int) (model.Challenge, error) {
	c, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return model.Challenge{}, err
	}

	var column string
	switch playerID {
	case c.ChallengerID:
		column = "challenger_score"
	case c.OpponentID:
		column = "opponent_score"
	default:
		return model.Challenge{}, ErrNotParticipant
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE challenges SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		score, time.Now().UTC(), challengeID)
	if err != nil {
		return model.Challenge{}, err
	}

	c, err = s.GetChallenge(ctx, challengeID)
	if err != nil {
		return model.Challenge{}, err
	}
	if c.ChallengerScore != nil && c.OpponentScore != nil && c.Status != model.ChallengeScored {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE challenges SET status = ?, updated_at = ? WHERE id = ?`,
			model.ChallengeScored, time.Now().UTC(), challengeID); err != nil {
			return model.Challenge{}, err
		}
		c.Status = model.ChallengeScored
	}
	return c, nil
}

// RecordedScore returns the click count playerID recorded on a challenge,
// if any. It feeds the recorded-score resolver, which asks for the
// opponent's side; a missing score means the round falls back to a
// simulated opponent.
func (s *Store) RecordedScore(ctx context.Context, challengeID, playerID string) (int, bool, error) {
	c, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return 0, false, err
	}

	switch playerID {
	case c.ChallengerID:
		if c.ChallengerScore != nil {
			return *c.ChallengerScore, true, nil
		}
	case c.OpponentID:
		if c.OpponentScore != nil {
			return *c.OpponentScore, true, nil
		}
	default:
		return 0, false, ErrNotParticipant
	}
	return 0, false, nil
}
