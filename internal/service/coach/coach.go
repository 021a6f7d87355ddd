// Package coach turns a free-form question about a pending decision into a
// structured, validated impact analysis.
//
// A request makes exactly one model call. Failures are reported through a
// small error taxonomy (see errors.go); malformed model output is never
// surfaced to callers as anything other than ErrCoachUnavailable.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/reasoner"
	"github.com/lifemosaic/negotiator/internal/telemetry"
)

// emptyReply stands in for a reply with no content so that it flows through
// the decoder and fails the contract like any other unusable output.
const emptyReply = "{}"

// Config configures a Service.
type Config struct {
	// APIKey is the credential for the model provider. An empty key makes
	// every request fail with ErrMissingAPIKey.
	APIKey  string
	Timeout time.Duration
}

// Service answers coaching questions.
type Service struct {
	reasoner reasoner.Reasoner
	apiKey   string
	timeout  time.Duration
	logger   *slog.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates a coach service. r may be nil when no API key is configured.
func New(r reasoner.Reasoner, cfg Config, logger *slog.Logger) *Service {
	meter := telemetry.Meter(telemetry.ScopeCoach)
	requests, _ := meter.Int64Counter("coach.requests",
		metric.WithDescription("Coach requests by outcome"))
	latency, _ := meter.Float64Histogram("coach.model.duration",
		metric.WithDescription("Model call latency"), metric.WithUnit("s"))

	return &Service{
		reasoner: r,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		logger:   logger,
		tracer:   telemetry.Tracer(telemetry.ScopeCoach),
		requests: requests,
		latency:  latency,
	}
}

// Ask analyses a query. Checks run in a fixed order: a blank query is
// ErrInvalidRequest and a missing key is ErrMissingAPIKey, both without any
// outbound call. Transport failures, timeouts and unusable output are all
// ErrCoachUnavailable.
func (s *Service) Ask(ctx context.Context, req model.AskRequest) (model.AnalysisResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		s.count(ctx, "invalid_request")
		return model.AnalysisResult{}, ErrInvalidRequest
	}
	if s.apiKey == "" || s.reasoner == nil {
		s.count(ctx, "missing_api_key")
		return model.AnalysisResult{}, ErrMissingAPIKey
	}

	prompt, err := AssemblePrompt(req.Query, req.Context)
	if err != nil {
		s.count(ctx, "invalid_request")
		return model.AnalysisResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "coach.ask")
	defer span.End()

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		s.logger.Warn("coach: model call failed", "error", err)
		s.count(ctx, "unavailable")
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrCoachUnavailable, err)
	}

	if strings.TrimSpace(raw) == "" {
		raw = emptyReply
	}
	result, err := Decode(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable reply")
		s.logger.Warn("coach: undecodable model reply", "error", err, "reply_bytes", len(raw))
		s.count(ctx, "invalid_json")
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrCoachUnavailable, err)
	}

	span.SetAttributes(attribute.String("coach.answer", string(result.Answer)))
	s.count(ctx, "ok")
	return result, nil
}

func (s *Service) complete(ctx context.Context, p reasoner.Prompt) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.reasoner.Complete(ctx, p)
	if s.latency != nil {
		s.latency.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, reasoner.ErrEmptyReply) {
			return "", nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return "", err
	}
	return raw, nil
}

func (s *Service) count(ctx context.Context, outcome string) {
	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
