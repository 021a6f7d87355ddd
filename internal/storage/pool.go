// Package storage provides the PostgreSQL storage layer for the negotiator.
//
// It manages connection pooling via pgxpool, COPY-based batch ingestion for
// life events, the append-only decision ledger, and daily risk and score
// snapshots.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"

	"github.com/lifemosaic/negotiator/internal/telemetry"
)

// DB wraps a pgxpool.Pool.
type DB struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	retries metric.Int64Counter
}

// New creates a new DB with a connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{
		pool:    pool,
		logger:  logger,
		retries: newRetryCounter(telemetry.Meter(telemetry.ScopeStorage)),
	}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// RegisterPoolMetrics exports pool gauges through the global meter. Call after
// telemetry.Init so the real provider is installed.
func (db *DB) RegisterPoolMetrics() {
	meter := telemetry.Meter(telemetry.ScopeStorage)
	total, err1 := meter.Int64ObservableGauge("db.pool.total_conns")
	idle, err2 := meter.Int64ObservableGauge("db.pool.idle_conns")
	acquired, err3 := meter.Int64ObservableGauge("db.pool.acquired_conns")
	if err1 != nil || err2 != nil || err3 != nil {
		db.logger.Warn("storage: pool metrics unavailable")
		return
	}
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.pool.Stat()
		o.ObserveInt64(total, int64(s.TotalConns()))
		o.ObserveInt64(idle, int64(s.IdleConns()))
		o.ObserveInt64(acquired, int64(s.AcquiredConns()))
		return nil
	}, total, idle, acquired)
	if err != nil {
		db.logger.Warn("storage: register pool metrics", "error", err)
	}
}
