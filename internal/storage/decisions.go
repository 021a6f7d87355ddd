package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lifemosaic/negotiator/internal/model"
)

// CreateDecision writes a ledger entry and its mirrored spending event in one
// transaction. Either both rows exist afterwards or neither does. Serialization
// failures and deadlocks are retried.
func (db *DB) CreateDecision(ctx context.Context, entry model.DecisionLedgerEntry, event model.Event) error {
	impacts, err := json.Marshal(entry.Impacts)
	if err != nil {
		return fmt.Errorf("storage: marshal impacts: %w", err)
	}
	var alternative []byte
	if entry.Alternative != nil {
		if alternative, err = json.Marshal(entry.Alternative); err != nil {
			return fmt.Errorf("storage: marshal alternative: %w", err)
		}
	}

	return db.withRetry(ctx, createDecisionRetry, func() error {
		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("storage: begin decision tx: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if err := insertEventTx(ctx, tx, event); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO decisions (id, user_id, query, item, decision_type, alternative,
			                        cost_actual, impacts, event_id, decided_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			entry.ID, entry.UserID, entry.Query, entry.Item, string(entry.DecisionType),
			alternative, entry.CostActual, impacts, event.ID, entry.DecidedAt,
		); err != nil {
			return fmt.Errorf("storage: insert decision: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("storage: commit decision tx: %w", err)
		}
		return nil
	})
}

// GetDecision retrieves a single ledger entry owned by userID.
func (db *DB) GetDecision(ctx context.Context, userID string, id uuid.UUID) (model.DecisionLedgerEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, query, item, decision_type, alternative, cost_actual, impacts, decided_at
		 FROM decisions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return model.DecisionLedgerEntry{}, fmt.Errorf("storage: get decision: %w", err)
	}
	defer rows.Close()

	entries, err := scanDecisions(rows)
	if err != nil {
		return model.DecisionLedgerEntry{}, err
	}
	if len(entries) == 0 {
		return model.DecisionLedgerEntry{}, fmt.Errorf("storage: decision %s: %w", id, ErrNotFound)
	}
	return entries[0], nil
}

// ListDecisions returns a user's ledger entries, most recent first.
func (db *DB) ListDecisions(ctx context.Context, userID string, limit, offset int) ([]model.DecisionLedgerEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, query, item, decision_type, alternative, cost_actual, impacts, decided_at
		 FROM decisions WHERE user_id = $1
		 ORDER BY decided_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecisions(rows pgx.Rows) ([]model.DecisionLedgerEntry, error) {
	var entries []model.DecisionLedgerEntry
	for rows.Next() {
		var (
			e            model.DecisionLedgerEntry
			decisionType string
			alternative  []byte
			impacts      []byte
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Query, &e.Item, &decisionType, &alternative,
			&e.CostActual, &impacts, &e.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan decision: %w", err)
		}
		e.DecisionType = model.DecisionType(decisionType)
		if len(alternative) > 0 {
			var alt model.Alternative
			if err := json.Unmarshal(alternative, &alt); err != nil {
				return nil, fmt.Errorf("storage: unmarshal alternative: %w", err)
			}
			e.Alternative = &alt
		}
		if err := json.Unmarshal(impacts, &e.Impacts); err != nil {
			return nil, fmt.Errorf("storage: unmarshal impacts: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
