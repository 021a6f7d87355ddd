// Package comparison aggregates a user's event stream into per-day metric
// series and contrasts the windows before and after an intervention date.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/telemetry"
)

var (
	// ErrInvalidMetric means the metric is not one of the supported set.
	ErrInvalidMetric = errors.New("comparison: invalid metric")

	// ErrInvalidWindow means the window or date range is out of bounds.
	ErrInvalidWindow = errors.New("comparison: invalid window")

	// ErrInvalidPeriod means the dashboard period is not week or month.
	ErrInvalidPeriod = errors.New("comparison: invalid period")

	// ErrInvalidBreakdown means the breakdown kind is not supported.
	ErrInvalidBreakdown = errors.New("comparison: invalid breakdown")
)

// Window bounds in days.
const (
	DefaultWindowDays = 14
	MaxWindowDays     = 90
	MaxTrendDays      = 366
)

// EventSource reads a user's events with occurred_at in [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, userID string, from, to time.Time, types []model.EventType) ([]model.Event, error)
}

// Service computes before/after comparisons, trends, dashboard figures and
// daily score snapshots.
type Service struct {
	events        EventSource
	scores        ScoreStore
	defaultWindow int
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// New creates a comparison service. defaultWindow applies when a caller
// passes 0; values outside [1, MaxWindowDays] fall back to DefaultWindowDays.
func New(events EventSource, scores ScoreStore, defaultWindow int, logger *slog.Logger) *Service {
	if defaultWindow < 1 || defaultWindow > MaxWindowDays {
		defaultWindow = DefaultWindowDays
	}
	return &Service{
		events:        events,
		scores:        scores,
		defaultWindow: defaultWindow,
		logger:        logger,
		tracer:        telemetry.Tracer(telemetry.ScopeComparison),
		now:           time.Now,
	}
}

// Compare contrasts metric over the windowDays days before interventionDate
// ([d-N, d)) with the windowDays days starting on it ([d, d+N)). Days are
// UTC calendar days. Each window lists every day, with value 0 where nothing
// was logged; such days do not count towards the averages.
func (s *Service) Compare(ctx context.Context, userID string, metric model.Metric, interventionDate time.Time, windowDays int) (model.BeforeAfterComparison, error) {
	def, ok := metrics[metric]
	if !ok {
		return model.BeforeAfterComparison{}, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}
	if windowDays == 0 {
		windowDays = s.defaultWindow
	}
	if windowDays < 1 || windowDays > MaxWindowDays {
		return model.BeforeAfterComparison{}, fmt.Errorf("%w: window_days must be between 1 and %d", ErrInvalidWindow, MaxWindowDays)
	}

	ctx, span := s.tracer.Start(ctx, "comparison.compare", trace.WithAttributes(
		attribute.String("comparison.metric", string(metric)),
		attribute.Int("comparison.window_days", windowDays),
	))
	defer span.End()

	pivot := startOfDay(interventionDate)
	from := pivot.AddDate(0, 0, -windowDays)
	to := pivot.AddDate(0, 0, windowDays)

	// One read covers both windows.
	events, err := s.events.ListEvents(ctx, userID, from, to, def.types)
	if err != nil {
		return model.BeforeAfterComparison{}, fmt.Errorf("comparison: load events: %w", err)
	}

	daily := bucketByDay(events, def)
	before := dailySeries(daily, from, windowDays, def.summed)
	after := dailySeries(daily, pivot, windowDays, def.summed)

	beforeAvg := round2(average(before))
	afterAvg := round2(average(after))
	change := round2(afterAvg - beforeAvg)
	var changePct float64
	if beforeAvg != 0 {
		changePct = round2(change / beforeAvg * 100)
	}

	s.logger.Debug("comparison computed",
		"user_id", userID, "metric", metric, "intervention_date", pivot.Format(time.DateOnly),
		"window_days", windowDays, "events", len(events))

	return model.BeforeAfterComparison{
		Metric:           metric,
		InterventionDate: pivot.Format(time.DateOnly),
		WindowDays:       windowDays,
		BeforeAvg:        beforeAvg,
		AfterAvg:         afterAvg,
		Change:           change,
		ChangePercent:    changePct,
		BeforeData:       before,
		AfterData:        after,
	}, nil
}

// Trend buckets metric over the inclusive date range [start, end] at the
// given granularity. Weeks start on Monday; months on the 1st. Only buckets
// with at least one contributing event are returned, oldest first.
func (s *Service) Trend(ctx context.Context, userID string, metric model.Metric, start, end time.Time, granularity model.Granularity) (model.TrendSeries, error) {
	def, ok := metrics[metric]
	if !ok {
		return model.TrendSeries{}, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}
	if granularity == "" {
		granularity = model.GranularityDay
	}
	if !granularity.Valid() {
		return model.TrendSeries{}, fmt.Errorf("%w: granularity must be day, week or month", ErrInvalidWindow)
	}
	start, end, err := dateRange(start, end)
	if err != nil {
		return model.TrendSeries{}, err
	}

	events, err := s.events.ListEvents(ctx, userID, start, end.AddDate(0, 0, 1), def.types)
	if err != nil {
		return model.TrendSeries{}, fmt.Errorf("comparison: load events: %w", err)
	}

	buckets := make(map[time.Time]*bucket)
	var keys []time.Time
	for _, e := range events {
		v, ok := def.extract(e)
		if !ok {
			continue
		}
		key := bucketStart(e.OccurredAt, granularity)
		b, seen := buckets[key]
		if !seen {
			b = &bucket{}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.add(v)
	}
	slices.SortFunc(keys, time.Time.Compare)

	data := make([]model.MetricPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		data = append(data, model.MetricPoint{
			Date:    k.Format(time.DateOnly),
			Value:   round2(b.value(def.summed)),
			Samples: b.n,
		})
	}

	return model.TrendSeries{
		Metric:      metric,
		Granularity: granularity,
		Start:       start.Format(time.DateOnly),
		End:         end.Format(time.DateOnly),
		Data:        data,
	}, nil
}

// bucketByDay groups contributing event values by UTC calendar day.
func bucketByDay(events []model.Event, def metricSpec) map[string]*bucket {
	daily := make(map[string]*bucket)
	for _, e := range events {
		v, ok := def.extract(e)
		if !ok {
			continue
		}
		key := e.OccurredAt.UTC().Format(time.DateOnly)
		b, seen := daily[key]
		if !seen {
			b = &bucket{}
			daily[key] = b
		}
		b.add(v)
	}
	return daily
}

// dailySeries lists days consecutive days starting at from.
func dailySeries(daily map[string]*bucket, from time.Time, days int, summed bool) []model.MetricPoint {
	out := make([]model.MetricPoint, days)
	for i := range days {
		key := from.AddDate(0, 0, i).Format(time.DateOnly)
		p := model.MetricPoint{Date: key}
		if b, ok := daily[key]; ok {
			p.Value = round2(b.value(summed))
			p.Samples = b.n
		}
		out[i] = p
	}
	return out
}

// dateRange normalises an inclusive [start, end] day range and checks its
// bounds.
func dateRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = startOfDay(start), startOfDay(end)
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end is before start", ErrInvalidWindow)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxTrendDays {
		return start, end, fmt.Errorf("%w: range exceeds %d days", ErrInvalidWindow, MaxTrendDays)
	}
	return start, end, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func bucketStart(t time.Time, g model.Granularity) time.Time {
	day := startOfDay(t)
	switch g {
	case model.GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case model.GranularityMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}
