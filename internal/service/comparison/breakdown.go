package comparison

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Nutrition quality tiers for food_by_quality, best first.
var qualityTiers = []struct {
	name string
	min  float64
}{
	{"Excellent", 8},
	{"Good", 6},
	{"Fair", 4},
	{"Poor", math.Inf(-1)},
}

var activityLabels = map[model.EventType]string{
	model.EventMovement: "Movement",
	model.EventWork:     "Work",
	model.EventStudy:    "Study",
	model.EventSocial:   "Social",
	model.EventSleep:    "Sleep",
	model.EventHabit:    "Habits",
	model.EventBreak:    "Break",
}

// Breakdown splits the events of the inclusive range [start, end] into named
// slices, largest first (ties by name), each with its share of the total.
//
//   - spending_by_category sums |amount| per category ("Other" when unset).
//   - food_by_quality counts meals per nutrition tier, using
//     metadata.nutrition_quality_score and falling back to the wellness score.
//   - time_by_activity sums minutes per activity; sleep logged as hours is
//     converted.
func (s *Service) Breakdown(ctx context.Context, userID string, kind model.BreakdownKind, start, end time.Time) (model.Breakdown, error) {
	if !kind.Valid() {
		return model.Breakdown{}, fmt.Errorf("%w: %q", ErrInvalidBreakdown, kind)
	}
	start, end, err := dateRange(start, end)
	if err != nil {
		return model.Breakdown{}, err
	}

	ctx, span := s.tracer.Start(ctx, "comparison.breakdown", trace.WithAttributes(
		attribute.String("comparison.breakdown", string(kind)),
	))
	defer span.End()

	var types []model.EventType
	switch kind {
	case model.BreakdownSpendingByCategory:
		types = []model.EventType{model.EventSpending}
	case model.BreakdownFoodByQuality:
		types = []model.EventType{model.EventFood}
	case model.BreakdownTimeByActivity:
		for t := range activityLabels {
			types = append(types, t)
		}
		slices.Sort(types)
	}

	events, err := s.events.ListEvents(ctx, userID, start, end.AddDate(0, 0, 1), types)
	if err != nil {
		return model.Breakdown{}, fmt.Errorf("comparison: load events: %w", err)
	}

	totals := make(map[string]float64)
	for _, e := range events {
		name, v, ok := sliceOf(kind, e)
		if ok {
			totals[name] += v
		}
	}

	return model.Breakdown{
		Kind:  kind,
		Start: start.Format(time.DateOnly),
		End:   end.Format(time.DateOnly),
		Items: rankSlices(totals),
	}, nil
}

// sliceOf names the slice an event falls into and its contribution.
func sliceOf(kind model.BreakdownKind, e model.Event) (string, float64, bool) {
	switch kind {
	case model.BreakdownSpendingByCategory:
		if e.Amount == nil {
			return "", 0, false
		}
		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = e.MetadataString("category")
		}
		if category == "" {
			category = "Other"
		}
		return category, math.Abs(*e.Amount), true

	case model.BreakdownFoodByQuality:
		q, ok := e.MetadataFloat("nutrition_quality_score")
		if !ok && e.Scores.WellnessImpact != nil {
			q, ok = *e.Scores.WellnessImpact, true
		}
		if !ok {
			return "", 0, false
		}
		for _, tier := range qualityTiers {
			if q >= tier.min {
				return tier.name, 1, true
			}
		}

	case model.BreakdownTimeByActivity:
		label, known := activityLabels[e.EventType]
		if !known {
			return "", 0, false
		}
		if m, ok := e.MetadataFloat("duration_minutes"); ok {
			return label, m, true
		}
		if e.Amount == nil {
			return "", 0, false
		}
		if e.EventType == model.EventSleep && *e.Amount <= 24 {
			return label, *e.Amount * 60, true
		}
		return label, *e.Amount, true
	}
	return "", 0, false
}

func rankSlices(totals map[string]float64) []model.BreakdownItem {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	items := make([]model.BreakdownItem, 0, len(totals))
	for name, v := range totals {
		item := model.BreakdownItem{Name: name, Value: round2(v)}
		if sum > 0 {
			item.Percentage = round2(v / sum * 100)
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b model.BreakdownItem) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return items
}
