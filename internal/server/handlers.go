package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
)

// EventStore is the slice of storage the handlers use directly.
type EventStore interface {
	Ping(ctx context.Context) error
	InsertEvents(ctx context.Context, events []model.Event) (int64, error)
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               EventStore
	coach               *coach.Service
	ledger              *ledger.Service
	comparison          *comparison.Service
	risk                *risk.Service
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	now                 func() time.Time
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Store               EventStore
	Coach               *coach.Service
	Ledger              *ledger.Service
	Comparison          *comparison.Service
	Risk                *risk.Service
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:               d.Store,
		coach:               d.Coach,
		ledger:              d.Ledger,
		comparison:          d.Comparison,
		risk:                d.Risk,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		now:                 time.Now,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	})
}

// queryInt parses an optional integer query parameter. Absent returns
// defaultVal; present but malformed is an error.
func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// queryDate parses a required date parameter. Both 2006-01-02 and RFC3339
// are accepted; only the UTC calendar day is used.
func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: expected YYYY-MM-DD or RFC3339", key)
	}
	return t.UTC(), nil
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
}
