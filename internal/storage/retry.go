package storage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// retryPolicy says which Postgres failures of one storage operation are
// transient and how hard to retry them.
type retryPolicy struct {
	op         string // "op" attribute on storage.retries
	maxRetries int
	baseDelay  time.Duration
	codes      []string // SQLSTATE codes treated as transient
}

var (
	// The decision transaction conflicts with concurrent ledger writers.
	createDecisionRetry = retryPolicy{
		op:         "create_decision",
		maxRetries: 3,
		baseDelay:  10 * time.Millisecond,
		codes:      []string{codeSerializationFailure, codeDeadlockDetected},
	}
	// COPY is all-or-nothing, so a batch refused by an overloaded or
	// restarting server can be resent whole.
	insertEventsRetry = retryPolicy{
		op:         "insert_events",
		maxRetries: 2,
		baseDelay:  50 * time.Millisecond,
		codes:      []string{codeTooManyConnections, codeAdminShutdown, codeCannotConnectNow},
	}
)

func newRetryCounter(meter metric.Meter) metric.Int64Counter {
	c, err := meter.Int64Counter("storage.retries",
		metric.WithDescription("Storage operations retried after a transient Postgres error"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// withRetry executes fn, retrying up to p.maxRetries times while it fails
// with one of p.codes. Retries use jittered exponential backoff starting at
// p.baseDelay and are counted in storage.retries by op and SQLSTATE.
func (db *DB) withRetry(ctx context.Context, p retryPolicy, fn func() error) error {
	delay := p.baseDelay
	var err error
	for attempt := range p.maxRetries + 1 {
		err = fn()
		if err == nil {
			return nil
		}
		code := sqlState(err)
		if !slices.Contains(p.codes, code) {
			return err
		}
		if attempt == p.maxRetries {
			break
		}

		db.retries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", p.op),
			attribute.String("sqlstate", code),
		))
		db.logger.Debug("storage: retrying", "op", p.op, "sqlstate", code, "attempt", attempt+1)

		wait := delay
		if delay > 0 {
			wait += time.Duration(rand.Int64N(int64(delay))) //nolint:gosec // jitter doesn't need crypto-strength randomness
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
	return fmt.Errorf("storage: %s: gave up after %d attempts: %w", p.op, p.maxRetries+1, err)
}
