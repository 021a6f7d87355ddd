package comparison

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lifemosaic/negotiator/internal/model"
)

// movementTargetMinutes of movement in a day earns a full movement score.
const movementTargetMinutes = 60

// ScoreStore persists daily score snapshots.
type ScoreStore interface {
	UpsertScoreSnapshot(ctx context.Context, userID string, s model.DailyScores) error
	ListScoreSnapshots(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScores, error)
}

// ActiveUsers lists users that logged events since the given time.
type ActiveUsers interface {
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// DailyScores computes the life-area scores of one UTC day.
//
// The wallet score is 50 plus half the net cash flow share: only income
// gives 100 and only spending gives 0. Wellness and sustainability map each
// event's -100..100 impact onto 0..100 and average them. Movement scales the
// day's movement minutes against a one hour target. Areas with no events
// score 50, except movement, which scores 0.
func (s *Service) DailyScores(ctx context.Context, userID string, day time.Time) (model.DailyScores, error) {
	day = startOfDay(day)
	events, err := s.events.ListEvents(ctx, userID, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		return model.DailyScores{}, fmt.Errorf("comparison: load events: %w", err)
	}

	var spend, income, minutes float64
	var wellness, sustainability bucket
	for _, e := range events {
		switch e.EventType {
		case model.EventSpending:
			if e.Amount != nil {
				spend += math.Abs(*e.Amount)
			}
		case model.EventIncome:
			if e.Amount != nil {
				income += math.Abs(*e.Amount)
			}
		case model.EventMovement:
			if v, ok := metrics[model.MetricMovementMinutes].extract(e); ok {
				minutes += v
			}
		}
		if e.Scores.WellnessImpact != nil {
			wellness.add(50 + *e.Scores.WellnessImpact/2)
		}
		if e.Scores.SustainabilityImpact != nil {
			sustainability.add(50 + *e.Scores.SustainabilityImpact/2)
		}
	}

	wallet := 50.0
	if income+spend > 0 {
		wallet = 50 + (income-spend)/(income+spend)*50
	}

	return model.DailyScores{
		Date:                day.Format(time.DateOnly),
		WalletScore:         score(wallet),
		WellnessScore:       score(orNeutral(wellness)),
		SustainabilityScore: score(orNeutral(sustainability)),
		MovementScore:       score(minutes / movementTargetMinutes * 100),
	}, nil
}

// SnapshotScores computes and stores the day's scores for userID.
func (s *Service) SnapshotScores(ctx context.Context, userID string, day time.Time) (model.DailyScores, error) {
	scores, err := s.DailyScores(ctx, userID, day)
	if err != nil {
		return model.DailyScores{}, err
	}
	if err := s.scores.UpsertScoreSnapshot(ctx, userID, scores); err != nil {
		return model.DailyScores{}, fmt.Errorf("comparison: store scores: %w", err)
	}
	return scores, nil
}

// ScoreHistory returns the stored daily scores in the inclusive range
// [start, end], oldest first. Days never snapshotted are absent.
func (s *Service) ScoreHistory(ctx context.Context, userID string, start, end time.Time) ([]model.DailyScores, error) {
	start, end, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}
	out, err := s.scores.ListScoreSnapshots(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("comparison: load score history: %w", err)
	}
	if out == nil {
		out = []model.DailyScores{}
	}
	return out, nil
}

// SnapshotActive stores today's scores for every user with events in the
// lookback window. Per-user failures are logged and skipped; the count of
// stored snapshots is returned.
func (s *Service) SnapshotActive(ctx context.Context, users ActiveUsers, lookback time.Duration) (int, error) {
	now := s.now()
	ids, err := users.ListActiveUserIDs(ctx, now.Add(-lookback))
	if err != nil {
		return 0, fmt.Errorf("comparison: list active users: %w", err)
	}
	var stored int
	for _, id := range ids {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		if _, err := s.SnapshotScores(ctx, id, now); err != nil {
			s.logger.Warn("comparison: score snapshot failed", "user_id", id, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

func orNeutral(b bucket) float64 {
	if b.n == 0 {
		return 50
	}
	return b.value(false)
}

func score(v float64) float64 {
	return round2(math.Max(0, math.Min(100, v)))
}
