package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lifemosaic/negotiator/internal/auth"
	"github.com/lifemosaic/negotiator/internal/config"
	"github.com/lifemosaic/negotiator/internal/mcp"
	"github.com/lifemosaic/negotiator/internal/ratelimit"
	"github.com/lifemosaic/negotiator/internal/server"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/reasoner"
	"github.com/lifemosaic/negotiator/internal/service/risk"
	"github.com/lifemosaic/negotiator/internal/storage"
	"github.com/lifemosaic/negotiator/internal/telemetry"
	"github.com/lifemosaic/negotiator/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("NEGOTIATOR_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// "negotiator token <user-id>" mints a development token with the
	// configured private key.
	if len(os.Args) == 3 && os.Args[1] == "token" {
		if err := printToken(os.Args[2]); err != nil {
			slog.Error("issue token", "error", err)
			return 1
		}
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func printToken(userID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.JWTPrivateKeyPath == "" {
		return errors.New("NEGOTIATOR_JWT_PRIVATE_KEY is required to issue tokens")
	}
	mgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return err
	}
	token, expiresAt, err := mgr.IssueToken(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	slog.Info("token issued", "user_id", userID, "expires_at", expiresAt)
	return nil
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("negotiator starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Register connection pool OTEL metrics (after telemetry.Init).
	db.RegisterPoolMetrics()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.JWTPublicKeyPath == "" {
		logger.Warn("auth: no public key configured, using an ephemeral key pair")
	}

	// Without a key the coach still starts; every ask then fails with
	// missing_api_key and never reaches the provider.
	var r reasoner.Reasoner
	if cfg.OpenAIAPIKey != "" {
		chat, err := reasoner.NewOpenAI(ctx, reasoner.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.CoachModel,
			Timeout: cfg.CoachTimeout,
		})
		if err != nil {
			return fmt.Errorf("reasoner: %w", err)
		}
		r = chat
		logger.Info("coach: enabled", "model", chat.Model())
	} else {
		logger.Warn("coach: disabled (no OPENAI_API_KEY)")
	}

	coachSvc := coach.New(r, coach.Config{APIKey: cfg.OpenAIAPIKey, Timeout: cfg.CoachTimeout}, logger)
	ledgerSvc := ledger.New(db, logger)
	comparisonSvc := comparison.New(db, db, cfg.ComparisonWindowDays, logger)

	weights, err := risk.LoadWeights(cfg.RiskPolicyFile)
	if err != nil {
		return fmt.Errorf("risk policy: %w", err)
	}
	policies, err := weights.Apply(risk.DefaultPolicies())
	if err != nil {
		return fmt.Errorf("risk policy: %w", err)
	}
	if weights != nil {
		logger.Info("risk: weights loaded", "file", cfg.RiskPolicyFile)
	}
	riskSvc := risk.New(db, db, policies, logger)

	mcpSrv := mcp.New(coachSvc, ledgerSvc, comparisonSvc, riskSvc, logger, version)

	// Create rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}
	defer func() { _ = limiter.Close() }()

	// Create and start HTTP server (MCP mounted at /mcp).
	srv := server.New(server.ServerConfig{
		Store:               db,
		JWTMgr:              jwtMgr,
		Coach:               coachSvc,
		Ledger:              ledgerSvc,
		Comparison:          comparisonSvc,
		Risk:                riskSvc,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	go snapshotLoop(ctx, riskSvc, comparisonSvc, db, logger, cfg.RiskSnapshotInterval, cfg.RiskActiveLookback)

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("negotiator shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("negotiator stopped")
	return nil
}

// snapshotLoop records daily risk and score snapshots for every recently
// active user and drops snapshots older than the longest history window. The
// first pass runs at startup so history is never a full interval behind after
// a restart.
func snapshotLoop(ctx context.Context, riskSvc *risk.Service, scoreSvc *comparison.Service, db *storage.DB, logger *slog.Logger, interval, lookback time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := riskSvc.SnapshotActive(ctx, db, lookback)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Warn("risk snapshot: pass failed", "error", err)
		case n > 0:
			logger.Info("risk snapshots recorded", "users", n)
		}

		n, err = scoreSvc.SnapshotActive(ctx, db, lookback)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Warn("score snapshot: pass failed", "error", err)
		case n > 0:
			logger.Info("score snapshots recorded", "users", n)
		}

		now := time.Now().UTC()
		if purged, err := db.PurgeRiskSnapshots(ctx, now.AddDate(0, 0, -risk.MaxHistoryDays), 1000); err != nil && ctx.Err() == nil {
			logger.Warn("risk snapshot: purge failed", "error", err)
		} else if purged > 0 {
			logger.Info("risk snapshots purged", "count", purged)
		}
		if purged, err := db.PurgeScoreSnapshots(ctx, now.AddDate(0, 0, -comparison.MaxTrendDays), 1000); err != nil && ctx.Err() == nil {
			logger.Warn("score snapshot: purge failed", "error", err)
		} else if purged > 0 {
			logger.Info("score snapshots purged", "count", purged)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
