package storage

import (
	"context"
	"fmt"
	"time"
)

// PurgeRiskSnapshots deletes risk snapshots dated before the cutoff, in
// batches of batchSize. Returns the number of rows removed.
func (db *DB) PurgeRiskSnapshots(ctx context.Context, before time.Time, batchSize int) (int64, error) {
	return db.purgeSnapshots(ctx, "risk_snapshots", before, batchSize)
}

// PurgeScoreSnapshots deletes daily score snapshots dated before the cutoff,
// in batches of batchSize. Returns the number of rows removed.
func (db *DB) PurgeScoreSnapshots(ctx context.Context, before time.Time, batchSize int) (int64, error) {
	return db.purgeSnapshots(ctx, "score_snapshots", before, batchSize)
}

// purgeSnapshots batches deletes to avoid long-running transactions. table is
// always a package constant, never caller input.
func (db *DB) purgeSnapshots(ctx context.Context, table string, before time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	query := fmt.Sprintf(`DELETE FROM %[1]s
		 WHERE (user_id, snapshot_date) IN (
		     SELECT user_id, snapshot_date FROM %[1]s
		     WHERE snapshot_date < $1::date
		     LIMIT $2
		 )`, table)

	var total int64
	for {
		tag, err := db.pool.Exec(ctx, query, before, batchSize)
		if err != nil {
			return total, fmt.Errorf("storage: purge %s: %w", table, err)
		}
		n := tag.RowsAffected()
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
