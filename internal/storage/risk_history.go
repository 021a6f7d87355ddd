package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lifemosaic/negotiator/internal/model"
)

// UpsertRiskSnapshot stores a user's risk scores for the snapshot's date,
// replacing any earlier snapshot taken the same day.
func (db *DB) UpsertRiskSnapshot(ctx context.Context, userID string, s model.RiskSnapshot) error {
	day, err := time.Parse(time.DateOnly, s.Date)
	if err != nil {
		return fmt.Errorf("storage: snapshot date %q: %w", s.Date, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO risk_snapshots (user_id, snapshot_date, burnout_risk, injury_risk, isolation_risk, financial_risk)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, snapshot_date) DO UPDATE SET
		     burnout_risk = EXCLUDED.burnout_risk,
		     injury_risk = EXCLUDED.injury_risk,
		     isolation_risk = EXCLUDED.isolation_risk,
		     financial_risk = EXCLUDED.financial_risk,
		     updated_at = now()`,
		userID, day, s.BurnoutRisk, s.InjuryRisk, s.IsolationRisk, s.FinancialRisk,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert risk snapshot: %w", err)
	}
	return nil
}

// ListRiskSnapshots returns a user's snapshots dated on or after since,
// oldest first.
func (db *DB) ListRiskSnapshots(ctx context.Context, userID string, since time.Time) ([]model.RiskSnapshot, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT snapshot_date, burnout_risk, injury_risk, isolation_risk, financial_risk
		 FROM risk_snapshots
		 WHERE user_id = $1 AND snapshot_date >= $2::date
		 ORDER BY snapshot_date ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("storage: list risk snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.RiskSnapshot
	for rows.Next() {
		var (
			s   model.RiskSnapshot
			day time.Time
		)
		if err := rows.Scan(&day, &s.BurnoutRisk, &s.InjuryRisk, &s.IsolationRisk, &s.FinancialRisk); err != nil {
			return nil, fmt.Errorf("storage: scan risk snapshot: %w", err)
		}
		s.Date = day.Format(time.DateOnly)
		out = append(out, s)
	}
	return out, rows.Err()
}
