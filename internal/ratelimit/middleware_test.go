package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemosaic/negotiator/internal/model"
)

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("store down") }
func (errLimiter) Close() error                                 { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func headerKey(r *http.Request) string { return r.Header.Get("X-User") }

func serve(h http.Handler, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/coach/ask", nil)
	req.Header.Set("X-User", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_LimitsPerKey(t *testing.T) {
	m, _ := newClockedLimiter(0.5, 1)
	defer closeLimiter(t, m)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Middleware(m, "coach", headerKey, func(*http.Request) string { return "req-1" }, logger)(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "alice").Code)

	rec := serve(h, "alice")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body model.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, model.ErrCodeRateLimited, body.Error.Code)
	assert.Equal(t, "req-1", body.Meta.RequestID)

	assert.Equal(t, http.StatusOK, serve(h, "bob").Code)

	// Anonymous requests are not keyed.
	assert.Equal(t, http.StatusOK, serve(h, "").Code)
	assert.Equal(t, http.StatusOK, serve(h, "").Code)
}

func TestMiddleware_FailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Middleware(errLimiter{}, "coach", headerKey, nil, logger)(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, "alice").Code)

	h = Middleware(nil, "coach", headerKey, nil, logger)(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, "alice").Code)
}
