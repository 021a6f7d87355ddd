package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lifemosaic/negotiator/internal/model"
)

// UpsertScoreSnapshot stores a user's daily scores, replacing any earlier
// snapshot for the same date.
func (db *DB) UpsertScoreSnapshot(ctx context.Context, userID string, s model.DailyScores) error {
	day, err := time.Parse(time.DateOnly, s.Date)
	if err != nil {
		return fmt.Errorf("storage: score snapshot date %q: %w", s.Date, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO score_snapshots (user_id, snapshot_date, wallet_score, wellness_score, sustainability_score, movement_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, snapshot_date) DO UPDATE SET
		     wallet_score = EXCLUDED.wallet_score,
		     wellness_score = EXCLUDED.wellness_score,
		     sustainability_score = EXCLUDED.sustainability_score,
		     movement_score = EXCLUDED.movement_score,
		     updated_at = now()`,
		userID, day, s.WalletScore, s.WellnessScore, s.SustainabilityScore, s.MovementScore,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert score snapshot: %w", err)
	}
	return nil
}

// ListScoreSnapshots returns a user's score snapshots dated within the
// inclusive range [from, to], oldest first.
func (db *DB) ListScoreSnapshots(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScores, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT snapshot_date, wallet_score, wellness_score, sustainability_score, movement_score
		 FROM score_snapshots
		 WHERE user_id = $1 AND snapshot_date BETWEEN $2::date AND $3::date
		 ORDER BY snapshot_date ASC`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("storage: list score snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.DailyScores
	for rows.Next() {
		var (
			s   model.DailyScores
			day time.Time
		)
		if err := rows.Scan(&day, &s.WalletScore, &s.WellnessScore, &s.SustainabilityScore, &s.MovementScore); err != nil {
			return nil, fmt.Errorf("storage: scan score snapshot: %w", err)
		}
		s.Date = day.Format(time.DateOnly)
		out = append(out, s)
	}
	return out, rows.Err()
}
