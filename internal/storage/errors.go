package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrTooManyEvents is returned when a range read matches more events than a
// single read may return. The caller should narrow the range.
var ErrTooManyEvents = errors.New("storage: too many events in range")

// Postgres SQLSTATE codes the storage layer reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

// sqlState returns the SQLSTATE of the Postgres error in err's chain, or ""
// when there is none.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
