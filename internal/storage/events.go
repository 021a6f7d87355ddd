package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lifemosaic/negotiator/internal/model"
)

// maxEventsPerRead caps a single range read. The longest analytics window is
// well under this for any realistic logging rate; a read past it fails with
// ErrTooManyEvents rather than returning a silently truncated range.
var maxEventsPerRead = 100_000

var eventColumns = []string{
	"id", "user_id", "event_type", "category", "title", "occurred_at", "amount",
	"metadata", "wellness_impact", "cost_impact", "sustainability_impact",
}

func eventRow(e model.Event) []any {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return []any{
		e.ID, e.UserID, string(e.EventType), e.Category, e.Title, e.OccurredAt, e.Amount,
		metadata, e.Scores.WellnessImpact, e.Scores.CostImpact, e.Scores.SustainabilityImpact,
	}
}

// InsertEvents inserts events using the COPY protocol. The batch is stored
// whole or not at all; a server that refuses connections is retried.
func (db *DB) InsertEvents(ctx context.Context, events []model.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = eventRow(e)
	}

	// Dedicated COPY timeout so a hung Postgres cannot pin the request.
	copyCtx, copyCancel := context.WithTimeout(ctx, 30*time.Second)
	defer copyCancel()

	var n int64
	err := db.withRetry(copyCtx, insertEventsRetry, func() error {
		var err error
		n, err = db.pool.CopyFrom(copyCtx, pgx.Identifier{"events"}, eventColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("storage: copy events: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// insertEventTx inserts a single event inside an open transaction.
func insertEventTx(ctx context.Context, tx pgx.Tx, e model.Event) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO events (id, user_id, event_type, category, title, occurred_at, amount,
		                     metadata, wellness_impact, cost_impact, sustainability_impact)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		eventRow(e)...,
	)
	if err != nil {
		return fmt.Errorf("storage: insert event: %w", err)
	}
	return nil
}

// ListEvents returns a user's events with occurred_at in [from, to), oldest
// first. An empty types slice matches every event type. A range holding more
// than maxEventsPerRead events fails with ErrTooManyEvents.
func (db *DB) ListEvents(ctx context.Context, userID string, from, to time.Time, types []model.EventType) ([]model.Event, error) {
	var typeFilter []string
	if len(types) > 0 {
		typeFilter = make([]string, len(types))
		for i, t := range types {
			typeFilter[i] = string(t)
		}
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, event_type, category, title, occurred_at, amount,
		        metadata, wellness_impact, cost_impact, sustainability_impact
		 FROM events
		 WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		   AND ($4::text[] IS NULL OR event_type = ANY($4))
		 ORDER BY occurred_at ASC, id ASC
		 LIMIT $5`,
		userID, from, to, typeFilter, maxEventsPerRead+1,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) > maxEventsPerRead {
		db.logger.Warn("storage: event range over read cap",
			"user_id", userID, "from", from, "to", to, "cap", maxEventsPerRead)
		return nil, fmt.Errorf("storage: list events: more than %d events: %w", maxEventsPerRead, ErrTooManyEvents)
	}
	return events, nil
}

// ListActiveUserIDs returns users with at least one event since the given time.
func (db *DB) ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM events WHERE occurred_at >= $1 ORDER BY user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("storage: list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvents(rows pgx.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var (
			e         model.Event
			eventType string
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &eventType, &e.Category, &e.Title, &e.OccurredAt, &e.Amount,
			&e.Metadata, &e.Scores.WellnessImpact, &e.Scores.CostImpact, &e.Scores.SustainabilityImpact,
		); err != nil {
			return nil, fmt.Errorf("storage: scan event: %w", err)
		}
		e.EventType = model.EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}
