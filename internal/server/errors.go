package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
	"github.com/lifemosaic/negotiator/internal/storage"
)

// apiError is the HTTP rendering of a service error.
type apiError struct {
	status  int
	code    string
	message string
}

// classify maps a service error to its status, code and client message.
// Client errors carry the wrapped message; server errors get a fixed one so
// upstream details never reach the client.
func classify(err error) apiError {
	switch {
	case errors.Is(err, coach.ErrInvalidRequest):
		return apiError{http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error()}
	case errors.Is(err, coach.ErrMissingAPIKey):
		return apiError{http.StatusInternalServerError, model.ErrCodeMissingAPIKey, "the analysis service is not configured"}
	case errors.Is(err, coach.ErrCoachUnavailable):
		return apiError{http.StatusInternalServerError, model.ErrCodeCoachUnavailable, "the analysis service is unavailable, try again shortly"}
	case errors.Is(err, ledger.ErrInvalidDecision):
		return apiError{http.StatusBadRequest, model.ErrCodeInvalidDecision, err.Error()}
	case errors.Is(err, comparison.ErrInvalidMetric),
		errors.Is(err, comparison.ErrInvalidWindow),
		errors.Is(err, comparison.ErrInvalidPeriod),
		errors.Is(err, comparison.ErrInvalidBreakdown),
		errors.Is(err, risk.ErrUnknownDimension),
		errors.Is(err, risk.ErrInvalidWindow):
		return apiError{http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error()}
	case errors.Is(err, storage.ErrNotFound):
		return apiError{http.StatusNotFound, model.ErrCodeNotFound, "not found"}
	case errors.Is(err, storage.ErrTooManyEvents):
		return apiError{http.StatusBadRequest, model.ErrCodeInvalidRequest, "too many events in range, narrow the dates"}
	case errors.Is(err, context.Canceled):
		// Client went away; the status is only for the access log.
		return apiError{499, model.ErrCodeInvalidRequest, "request canceled"}
	default:
		return apiError{http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error"}
	}
}

// writeServiceError classifies err, logs server-side failures and writes the
// error envelope.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
	}
	writeError(w, r, e.status, e.code, e.message)
}
