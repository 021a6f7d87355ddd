package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemosaic/negotiator/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	entries []model.DecisionLedgerEntry
	events  []model.Event
	err     error
}

func (m *memStore) CreateDecision(_ context.Context, e model.DecisionLedgerEntry, ev model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) GetDecision(_ context.Context, userID string, id uuid.UUID) (model.DecisionLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return model.DecisionLedgerEntry{}, errors.New("not found")
}

func (m *memStore) ListDecisions(_ context.Context, userID string, limit, offset int) ([]model.DecisionLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []model.DecisionLedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].DecidedAt.After(mine[j].DecidedAt) })
	if offset >= len(mine) {
		return nil, nil
	}
	mine = mine[offset:]
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

func ptr[T any](v T) *T { return &v }

func newTestService(store Store) *Service {
	svc := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc
}

func latteRequest(dt model.DecisionType) model.LogDecisionRequest {
	return model.LogDecisionRequest{
		Query:        "Should I buy a $6 latte?",
		Item:         "latte",
		DecisionType: dt,
		Alternative: &model.Alternative{
			Suggestion: "Brew at home", Cost: 0.8, CostSaved: 5.2,
			HealthImprovement: 2, SustainabilityImprovement: 3,
		},
		Impacts: model.Breakdown{
			CostImpact:           model.CostImpact{Immediate: 6},
			HealthImpact:         model.HealthImpact{WellnessChange: -1},
			SustainabilityImpact: model.SustainabilityImpact{PackagingWaste: model.PackagingMedium, ScoreChange: -2},
		},
	}
}

func TestRecordAndListSavings(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Record(ctx, "u1", latteRequest(model.DecisionDidIt))
	require.NoError(t, err)
	id, err := svc.Record(ctx, "u1", latteRequest(model.DecisionTookAlternative))
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u1", latteRequest(model.DecisionSkipped))
	require.NoError(t, err)

	history, err := svc.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.DecisionSkipped, history[0].DecisionType, "newest first")
	assert.Equal(t, 0.0, history[0].Savings)
	assert.Equal(t, id, history[1].ID)
	assert.Equal(t, 5.2, history[1].Savings)
	assert.Equal(t, 0.0, history[2].Savings)

	got, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 5.2, got.Savings)
}

func TestRecordRejectsInvalidWithoutWriting(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	bad := []model.LogDecisionRequest{
		func() model.LogDecisionRequest { r := latteRequest("bought_it"); return r }(),
		func() model.LogDecisionRequest { r := latteRequest(model.DecisionDidIt); r.Query = "  "; return r }(),
		func() model.LogDecisionRequest { r := latteRequest(model.DecisionDidIt); r.Item = ""; return r }(),
		func() model.LogDecisionRequest {
			r := latteRequest(model.DecisionDidIt)
			r.CostActual = ptr(-3.0)
			return r
		}(),
		func() model.LogDecisionRequest {
			r := latteRequest(model.DecisionDidIt)
			r.CostActual = ptr(math.NaN())
			return r
		}(),
		func() model.LogDecisionRequest {
			r := latteRequest(model.DecisionDidIt)
			r.Impacts.SustainabilityImpact.PackagingWaste = "Huge"
			return r
		}(),
		func() model.LogDecisionRequest {
			r := latteRequest(model.DecisionDidIt)
			r.Impacts = model.Breakdown{}
			return r
		}(),
	}
	for _, req := range bad {
		_, err := svc.Record(context.Background(), "u1", req)
		assert.ErrorIs(t, err, ErrInvalidDecision)
	}
	assert.Empty(t, store.entries)
	assert.Empty(t, store.events)
}

func TestRecordStoreFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestService(&memStore{err: boom})
	_, err := svc.Record(context.Background(), "u1", latteRequest(model.DecisionDidIt))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidDecision)
}

func TestRecordMirrorsSpendingEvent(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	_, err := svc.Record(context.Background(), "u1", latteRequest(model.DecisionTookAlternative))
	require.NoError(t, err)
	require.Len(t, store.events, 1)

	ev := store.events[0]
	entry := store.entries[0]
	assert.Equal(t, model.EventSpending, ev.EventType)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, entry.DecidedAt, ev.OccurredAt)
	require.NotNil(t, ev.Amount)
	assert.Equal(t, 0.8, *ev.Amount, "alternative cost is what was spent")
	assert.Equal(t, "negotiator_decision", ev.Metadata["type"])
	assert.Equal(t, entry.ID.String(), ev.Metadata["decision_id"])
	assert.Equal(t, 2.0, *ev.Scores.WellnessImpact)
	assert.Equal(t, 3.0, *ev.Scores.SustainabilityImpact)
}

func TestRecordSkippedSpendsNothing(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	_, err := svc.Record(context.Background(), "u1", latteRequest(model.DecisionSkipped))
	require.NoError(t, err)

	// No amount and no scores: a day of skipped purchases is not a
	// zero-spend sample for the comparator.
	ev := store.events[0]
	assert.Equal(t, model.EventSpending, ev.EventType)
	assert.Nil(t, ev.Amount)
	assert.Nil(t, ev.Scores.WellnessImpact)
	assert.Nil(t, ev.Scores.SustainabilityImpact)
	assert.Nil(t, ev.Scores.CostImpact)
	assert.Equal(t, "skipped", ev.Metadata["decision_type"])
}

func TestRecordSkippedWithExplicitCost(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	req := latteRequest(model.DecisionSkipped)
	req.CostActual = ptr(1.5)
	_, err := svc.Record(context.Background(), "u1", req)
	require.NoError(t, err)

	ev := store.events[0]
	require.NotNil(t, ev.Amount)
	assert.Equal(t, 1.5, *ev.Amount)
	assert.Nil(t, ev.Scores.WellnessImpact)
}

func TestListPaging(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	for range 5 {
		_, err := svc.Record(context.Background(), "u1", latteRequest(model.DecisionDidIt))
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), "u1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = svc.List(context.Background(), "u1", 2, -7)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	other, err := svc.List(context.Background(), "u2", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultLimit, 0},
		{-5, -1, DefaultLimit, 0},
		{1, 3, 1, 3},
		{100, 0, 100, 0},
		{101, 0, MaxLimit, 0},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}
