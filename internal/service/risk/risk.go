// Package risk scores a user's recent events into composite 0-100 risk
// values for burnout, injury, isolation and financial strain.
//
// Each dimension is a Policy: a collector that turns events into named
// signals, and a list of weighted factors over those signals. The aggregate,
// level thresholds and factor ordering are fixed; weights are tunable.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/telemetry"
)

var (
	// ErrUnknownDimension means the dimension has no policy.
	ErrUnknownDimension = errors.New("risk: unknown dimension")

	// ErrInvalidWindow means the lookback is outside the policy's bounds.
	ErrInvalidWindow = errors.New("risk: invalid window")
)

// History bounds in days.
const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

// EventSource reads a user's events with occurred_at in [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, userID string, from, to time.Time, types []model.EventType) ([]model.Event, error)
}

// SnapshotStore persists daily risk snapshots.
type SnapshotStore interface {
	UpsertRiskSnapshot(ctx context.Context, userID string, s model.RiskSnapshot) error
	ListRiskSnapshots(ctx context.Context, userID string, since time.Time) ([]model.RiskSnapshot, error)
}

// Service computes risk assessments and keeps their daily history.
type Service struct {
	events    EventSource
	snapshots SnapshotStore
	policies  map[model.RiskDimension]Policy
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a risk service. A nil policies map uses DefaultPolicies.
func New(events EventSource, snapshots SnapshotStore, policies map[model.RiskDimension]Policy, logger *slog.Logger) *Service {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Service{
		events:    events,
		snapshots: snapshots,
		policies:  policies,
		logger:    logger,
		tracer:    telemetry.Tracer(telemetry.ScopeRisk),
		now:       time.Now,
	}
}

// Assess scores one dimension over the last days UTC days ending today.
// days == 0 uses the policy default.
func (s *Service) Assess(ctx context.Context, userID string, dim model.RiskDimension, days int) (model.RiskAssessment, error) {
	return s.assessAt(ctx, userID, dim, days, s.today())
}

func (s *Service) assessAt(ctx context.Context, userID string, dim model.RiskDimension, days int, today time.Time) (model.RiskAssessment, error) {
	p, ok := s.policies[dim]
	if !ok {
		return model.RiskAssessment{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	if days == 0 {
		days = p.DefaultDays
	}
	if days < 1 || days > p.MaxDays {
		return model.RiskAssessment{}, fmt.Errorf("%w: days for %s must be between 1 and %d", ErrInvalidWindow, dim, p.MaxDays)
	}

	ctx, span := s.tracer.Start(ctx, "risk.assess", trace.WithAttributes(
		attribute.String("risk.dimension", string(dim)),
		attribute.Int("risk.days", days),
	))
	defer span.End()

	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)
	prevStart := start.AddDate(0, 0, -days)

	events, err := s.events.ListEvents(ctx, userID, prevStart, end, p.Types)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("risk: load events: %w", err)
	}

	w := Window{Days: days, Start: start}
	for _, e := range events {
		if e.OccurredAt.Before(start) {
			w.Previous = append(w.Previous, e)
		} else {
			w.Current = append(w.Current, e)
		}
	}

	a := p.Evaluate(p.Collect(w), days)
	span.SetAttributes(attribute.Float64("risk.score", a.Risk), attribute.String("risk.level", string(a.Level)))
	return a, nil
}

// Snapshot scores every dimension with its default window as of day and
// stores the result.
func (s *Service) Snapshot(ctx context.Context, userID string, day time.Time) (model.RiskSnapshot, error) {
	today := startOfDay(day)
	scores := make([]float64, len(model.RiskDimensions))

	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range model.RiskDimensions {
		g.Go(func() error {
			a, err := s.assessAt(gctx, userID, dim, 0, today)
			if err != nil {
				return err
			}
			scores[i] = a.Risk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.RiskSnapshot{}, err
	}

	snap := model.RiskSnapshot{Date: today.Format(time.DateOnly)}
	for i, dim := range model.RiskDimensions {
		snap.Set(dim, scores[i])
	}
	if err := s.snapshots.UpsertRiskSnapshot(ctx, userID, snap); err != nil {
		return model.RiskSnapshot{}, fmt.Errorf("risk: save snapshot: %w", err)
	}
	return snap, nil
}

// History returns the stored daily scores for dims over the last days days,
// ascending by date. days == 0 uses DefaultHistoryDays; an empty dims selects
// every dimension.
func (s *Service) History(ctx context.Context, userID string, days int, dims []model.RiskDimension) (model.RiskHistory, error) {
	if days == 0 {
		days = DefaultHistoryDays
	}
	if days < 1 || days > MaxHistoryDays {
		return model.RiskHistory{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidWindow, MaxHistoryDays)
	}
	if len(dims) == 0 {
		dims = model.RiskDimensions
	}
	for _, d := range dims {
		if !d.Valid() {
			return model.RiskHistory{}, fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
	}

	since := s.today().AddDate(0, 0, -(days - 1))
	snaps, err := s.snapshots.ListRiskSnapshots(ctx, userID, since)
	if err != nil {
		return model.RiskHistory{}, fmt.Errorf("risk: load history: %w", err)
	}

	h := model.RiskHistory{Days: days, Series: make(map[model.RiskDimension][]model.RiskPoint, len(dims))}
	for _, d := range dims {
		points := make([]model.RiskPoint, 0, len(snaps))
		for _, snap := range snaps {
			points = append(points, model.RiskPoint{Date: snap.Date, Risk: snap.Score(d)})
		}
		h.Series[d] = points
	}
	return h, nil
}

// ActiveUsers lists users that logged events since the given time.
type ActiveUsers interface {
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// SnapshotActive snapshots every user with events in the lookback window.
// Per-user failures are logged and skipped; the count of stored snapshots is
// returned.
func (s *Service) SnapshotActive(ctx context.Context, users ActiveUsers, lookback time.Duration) (int, error) {
	now := s.now()
	ids, err := users.ListActiveUserIDs(ctx, now.Add(-lookback))
	if err != nil {
		return 0, fmt.Errorf("risk: list active users: %w", err)
	}
	var stored int
	for _, id := range ids {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		if _, err := s.Snapshot(ctx, id, now); err != nil {
			s.logger.Warn("risk: snapshot failed", "user_id", id, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

func (s *Service) today() time.Time {
	return startOfDay(s.now())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
