package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lifemosaic/negotiator/internal/auth"
	"github.com/lifemosaic/negotiator/internal/ratelimit"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
)

// Server is the Negotiator HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Limiter and MCPServer are optional (nil = disabled).
type ServerConfig struct {
	// Required dependencies.
	Store      EventStore
	JWTMgr     *auth.JWTManager
	Coach      *coach.Service
	Ledger     *ledger.Service
	Comparison *comparison.Service
	Risk       *risk.Service
	Logger     *slog.Logger

	// Optional dependencies.
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Coach:               cfg.Coach,
		Ledger:              cfg.Ledger,
		Comparison:          cfg.Comparison,
		Risk:                cfg.Risk,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	// Every analysis costs a model call, so asks are limited per user.
	coachRL := ratelimit.Middleware(cfg.Limiter, "coach", userID, reqIDFunc, cfg.Logger)

	mux := http.NewServeMux()

	mux.Handle("POST /v1/coach/ask", coachRL(http.HandlerFunc(h.HandleAsk)))

	mux.HandleFunc("POST /v1/decisions", h.HandleLogDecision)
	mux.HandleFunc("GET /v1/decisions", h.HandleListDecisions)
	mux.HandleFunc("GET /v1/decisions/{id}", h.HandleGetDecision)

	mux.HandleFunc("POST /v1/events", h.HandleAppendEvents)

	mux.HandleFunc("GET /v1/analytics/comparison", h.HandleComparison)
	mux.HandleFunc("GET /v1/analytics/trends", h.HandleTrends)
	mux.HandleFunc("GET /v1/analytics/dashboard-stats", h.HandleDashboardStats)
	mux.HandleFunc("GET /v1/analytics/breakdown", h.HandleBreakdown)
	mux.HandleFunc("GET /v1/analytics/score-history", h.HandleScoreHistory)

	// The literal history route wins over the {dimension} wildcard.
	mux.HandleFunc("GET /v1/risk/history", h.HandleRiskHistory)
	mux.HandleFunc("GET /v1/risk/{dimension}", h.HandleRisk)

	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
