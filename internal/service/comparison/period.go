package comparison

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifemosaic/negotiator/internal/model"
)

// periodTotals are the raw dashboard figures of one period.
type periodTotals struct {
	spending float64
	steps    float64
	meals    float64
	workouts float64
	wellness bucket
	swaps    float64
	saved    float64
}

func (t *periodTotals) add(e model.Event) {
	switch e.EventType {
	case model.EventSpending:
		if e.Amount != nil {
			t.spending += math.Abs(*e.Amount)
		}
	case model.EventFood:
		t.meals++
	case model.EventMovement:
		t.workouts++
		if v, ok := e.MetadataFloat("steps"); ok {
			t.steps += v
		}
	}
	if e.Scores.WellnessImpact != nil {
		t.wellness.add(*e.Scores.WellnessImpact)
	}
	if saved, ok := swapSavings(e); ok {
		t.swaps++
		t.saved += saved
	}
}

// swapSavings reports whether e records an accepted alternative and what it
// saved. Ledger decisions taken as the alternative count, as do events
// logged with swap_accepted.
func swapSavings(e model.Event) (float64, bool) {
	if e.MetadataString("type") == decisionEventType {
		if e.MetadataString("decision_type") != string(model.DecisionTookAlternative) {
			return 0, false
		}
		v, _ := e.MetadataFloat("savings")
		return v, true
	}
	accepted := e.MetadataBool("swap_accepted")
	switch e.MetadataString("swap_accepted") {
	case "true", "yes", "1":
		accepted = true
	}
	if !accepted {
		return 0, false
	}
	if v, ok := e.MetadataFloat("swap_savings"); ok {
		return v, true
	}
	v, _ := e.MetadataFloat("money_saved")
	return v, true
}

// decisionEventType tags spending events mirrored from the decision ledger.
const decisionEventType = "negotiator_decision"

// PeriodStats compares the trailing period ending today with the period of
// equal length before it. Both periods are read in one query.
func (s *Service) PeriodStats(ctx context.Context, userID string, period model.Period) (model.PeriodStats, error) {
	days := period.Days()
	if days == 0 {
		return model.PeriodStats{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	ctx, span := s.tracer.Start(ctx, "comparison.period_stats", trace.WithAttributes(
		attribute.String("comparison.period", string(period)),
	))
	defer span.End()

	today := startOfDay(s.now())
	start := today.AddDate(0, 0, -(days - 1))
	prevStart := start.AddDate(0, 0, -days)
	end := today.AddDate(0, 0, 1)

	events, err := s.events.ListEvents(ctx, userID, prevStart, end, nil)
	if err != nil {
		return model.PeriodStats{}, fmt.Errorf("comparison: load events: %w", err)
	}

	var cur, prev periodTotals
	for _, e := range events {
		if e.OccurredAt.Before(start) {
			prev.add(e)
		} else {
			cur.add(e)
		}
	}

	return model.PeriodStats{
		Period:        period,
		Start:         start.Format(time.DateOnly),
		End:           today.Format(time.DateOnly),
		PreviousStart: prevStart.Format(time.DateOnly),
		Stats: model.DashboardStats{
			SpendingTotal:      stat(cur.spending, prev.spending),
			StepsTotal:         stat(cur.steps, prev.steps),
			MealsLogged:        stat(cur.meals, prev.meals),
			WorkoutsCompleted:  stat(cur.workouts, prev.workouts),
			WellnessScoreAvg:   stat(cur.wellness.value(false), prev.wellness.value(false)),
			SwapsAccepted:      stat(cur.swaps, prev.swaps),
			MoneySavedViaSwaps: stat(cur.saved, prev.saved),
		},
	}, nil
}

// stat rounds both figures before differencing, so value and change agree
// with what the client displays. A rise from nothing is reported as 100%.
func stat(current, previous float64) model.PeriodStat {
	current, previous = round2(current), round2(previous)
	st := model.PeriodStat{Value: current, Change: round2(current - previous)}
	switch {
	case previous != 0:
		st.ChangePercent = round2((current - previous) / previous * 100)
	case current != 0:
		st.ChangePercent = 100
	}
	return st
}
