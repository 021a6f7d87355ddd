package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifemosaic/negotiator/internal/auth"
	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
	"github.com/lifemosaic/negotiator/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"blank query", fmt.Errorf("%w: query is required", coach.ErrInvalidRequest), http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"missing key", coach.ErrMissingAPIKey, http.StatusInternalServerError, model.ErrCodeMissingAPIKey},
		{"coach unavailable", fmt.Errorf("coach: ask: %w", coach.ErrCoachUnavailable), http.StatusInternalServerError, model.ErrCodeCoachUnavailable},
		{"invalid decision", fmt.Errorf("%w: bad type", ledger.ErrInvalidDecision), http.StatusBadRequest, model.ErrCodeInvalidDecision},
		{"invalid metric", comparison.ErrInvalidMetric, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"invalid window", comparison.ErrInvalidWindow, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"invalid period", fmt.Errorf("comparison: %w", comparison.ErrInvalidPeriod), http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"invalid breakdown", comparison.ErrInvalidBreakdown, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"unknown dimension", risk.ErrUnknownDimension, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"risk window", risk.ErrInvalidWindow, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"not found", fmt.Errorf("storage: get decision: %w", storage.ErrNotFound), http.StatusNotFound, model.ErrCodeNotFound},
		{"event cap", fmt.Errorf("comparison: load events: %w", storage.ErrTooManyEvents), http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"canceled", context.Canceled, 499, model.ErrCodeInvalidRequest},
		{"anything else", errors.New("pool exhausted"), http.StatusInternalServerError, model.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.status, got.status)
			assert.Equal(t, tt.code, got.code)
		})
	}
}

func TestClassify_ServerErrorsHideDetails(t *testing.T) {
	err := fmt.Errorf("%w: dial tcp 10.0.0.3:443: connection refused", coach.ErrCoachUnavailable)
	assert.NotContains(t, classify(err).message, "10.0.0.3")
	assert.NotContains(t, classify(errors.New("secret dsn")).message, "dsn")
}

func TestAuthMiddleware(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	token, _, err := mgr.IssueToken("user-42")
	require.NoError(t, err)

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userID(r)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := authMiddleware(mgr, inner)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		user   string
	}{
		{"valid bearer", "/v1/decisions", "Bearer " + token, http.StatusNoContent, "user-42"},
		{"lowercase scheme", "/v1/decisions", "bearer " + token, http.StatusNoContent, "user-42"},
		{"missing header", "/v1/decisions", "", http.StatusUnauthorized, ""},
		{"basic scheme", "/v1/decisions", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"garbage token", "/v1/decisions", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
		{"health is public", "/health", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
			if tt.status == http.StatusUnauthorized {
				var e model.APIError
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
				assert.Equal(t, model.ErrCodeUnauthorized, e.Error.Code)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := requestIDMiddleware(recoveryMiddleware(quietLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/decisions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var e model.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	assert.Equal(t, model.ErrCodeInternalError, e.Error.Code)
	assert.NotEmpty(t, e.Meta.RequestID)
}

func TestRequestIDMiddleware(t *testing.T) {
	var fromCtx string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	t.Run("propagates client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", fromCtx)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Len(t, fromCtx, 36)
		assert.Equal(t, fromCtx, rec.Header().Get("X-Request-ID"))
	})
}

func TestTracingMiddlewareContinuesIncomingTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var got trace.SpanContext
	h := tracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/risk/burnout", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.TraceID().String())
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestDecodeJSON(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		body := `{"query": "` + strings.Repeat("a", 256) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/coach/ask", strings.NewReader(body))
		rec := httptest.NewRecorder()

		var target model.AskRequest
		err := decodeJSON(rec, req, &target, 64)
		require.Error(t, err)
		handleDecodeError(rec, req, err)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/coach/ask", strings.NewReader(`{"query":"x","mood":"great"}`))
		var target model.AskRequest
		assert.Error(t, decodeJSON(httptest.NewRecorder(), req, &target, 1024))
	})

	t.Run("trailing object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/coach/ask", strings.NewReader(`{"query":"x"}{"query":"y"}`))
		var target model.AskRequest
		assert.Error(t, decodeJSON(httptest.NewRecorder(), req, &target, 1024))
	})

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/coach/ask", strings.NewReader(`{"query":"latte?","context":{"budget":50}}`))
		var target model.AskRequest
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &target, 1024))
		assert.Equal(t, "latte?", target.Query)
		assert.Equal(t, 50.0, target.Context["budget"])
	})
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?days=14&bad=ten&d1=2024-03-01&d2=2024-03-01T23:30:00%2B02:00&d3=March", nil)

	n, err := queryInt(req, "days", 7)
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	n, err = queryInt(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = queryInt(req, "bad", 7)
	assert.Error(t, err)

	d, err := queryDate(req, "d1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.Format(time.DateOnly))

	d, err = queryDate(req, "d2")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T21:30:00Z", d.Format(time.RFC3339))

	_, err = queryDate(req, "d3")
	assert.Error(t, err)
	_, err = queryDate(req, "missing")
	assert.Error(t, err)
}
