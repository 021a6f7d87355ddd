// Package ledger records what users decided after an analysis and serves the
// decision history with computed savings.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lifemosaic/negotiator/internal/model"
)

// ErrInvalidDecision means the entry failed validation; nothing was written.
var ErrInvalidDecision = errors.New("ledger: invalid decision")

// Pagination bounds for List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// decisionEventType tags the mirrored spending event so analytics can tell
// ledger-driven spending apart from directly logged spending.
const decisionEventType = "negotiator_decision"

// Store persists ledger entries.
type Store interface {
	// CreateDecision writes the entry and its mirrored event atomically.
	CreateDecision(ctx context.Context, entry model.DecisionLedgerEntry, event model.Event) error
	GetDecision(ctx context.Context, userID string, id uuid.UUID) (model.DecisionLedgerEntry, error)
	ListDecisions(ctx context.Context, userID string, limit, offset int) ([]model.DecisionLedgerEntry, error)
}

// Service records and lists decisions.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a ledger service.
func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Record validates and stores a decision for userID, returning its id.
// Validation runs before any write.
func (s *Service) Record(ctx context.Context, userID string, req model.LogDecisionRequest) (uuid.UUID, error) {
	if err := validate(req); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}

	now := s.now().UTC()
	entry := model.DecisionLedgerEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Query:        strings.TrimSpace(req.Query),
		Item:         strings.TrimSpace(req.Item),
		DecisionType: req.DecisionType,
		Alternative:  req.Alternative,
		CostActual:   req.CostActual,
		Impacts:      req.Impacts,
		DecidedAt:    now,
	}

	if err := s.store.CreateDecision(ctx, entry, mirrorEvent(entry)); err != nil {
		return uuid.Nil, fmt.Errorf("ledger: record: %w", err)
	}

	s.logger.Info("decision recorded",
		"decision_id", entry.ID,
		"user_id", userID,
		"decision_type", entry.DecisionType,
		"savings", entry.Savings(),
	)
	return entry.ID, nil
}

// Get returns one of the user's decisions with its savings.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (model.DecisionHistoryEntry, error) {
	e, err := s.store.GetDecision(ctx, userID, id)
	if err != nil {
		return model.DecisionHistoryEntry{}, fmt.Errorf("ledger: get: %w", err)
	}
	return model.NewDecisionHistoryEntry(e), nil
}

// List returns the user's decisions newest first. limit is clamped to
// [1, MaxLimit] (0 selects DefaultLimit) and a negative offset is treated as 0.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]model.DecisionHistoryEntry, error) {
	limit, offset = NormalizePage(limit, offset)
	entries, err := s.store.ListDecisions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	out := make([]model.DecisionHistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = model.NewDecisionHistoryEntry(e)
	}
	return out, nil
}

// NormalizePage applies the default and bounds to paging parameters.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validate(req model.LogDecisionRequest) error {
	if !req.DecisionType.Valid() {
		return fmt.Errorf("decision_type must be one of did_it, took_alternative, skipped")
	}
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if strings.TrimSpace(req.Item) == "" {
		return fmt.Errorf("item is required")
	}
	if len(req.Query) > model.MaxQueryLen {
		return fmt.Errorf("query exceeds maximum length of %d bytes", model.MaxQueryLen)
	}
	if len(req.Item) > model.MaxItemLen {
		return fmt.Errorf("item exceeds maximum length of %d bytes", model.MaxItemLen)
	}
	if req.CostActual != nil && (math.IsNaN(*req.CostActual) || math.IsInf(*req.CostActual, 0) || *req.CostActual < 0) {
		return fmt.Errorf("cost_actual must be a non-negative number")
	}
	if err := req.Impacts.Validate(); err != nil {
		return fmt.Errorf("impacts: %w", err)
	}
	if req.Alternative != nil {
		if err := req.Alternative.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// mirrorEvent is the spending event written alongside a ledger entry so the
// comparator and risk engine see decisions in the user's event stream.
//
// A skipped decision without an explicit cost carries no amount and no
// scores: nothing was bought, so it must not show up as a zero-spend sample
// that drags the day's averages down.
func mirrorEvent(e model.DecisionLedgerEntry) model.Event {
	ev := model.Event{
		ID:         uuid.New(),
		UserID:     e.UserID,
		EventType:  model.EventSpending,
		Category:   "finance",
		Title:      e.Item,
		OccurredAt: e.DecidedAt,
		Metadata: map[string]any{
			"type":          decisionEventType,
			"decision_id":   e.ID.String(),
			"decision_type": string(e.DecisionType),
			"query":         e.Query,
			"savings":       e.Savings(),
		},
	}
	if e.DecisionType == model.DecisionSkipped && e.CostActual == nil {
		return ev
	}

	cost := e.ActualCost()
	costImpact := -cost
	ev.Amount = &cost
	ev.Scores.CostImpact = &costImpact
	if e.DecisionType == model.DecisionSkipped {
		return ev
	}

	wellness := e.Impacts.HealthImpact.WellnessChange
	sustainability := e.Impacts.SustainabilityImpact.ScoreChange
	if e.DecisionType == model.DecisionTookAlternative && e.Alternative != nil {
		wellness = e.Alternative.HealthImprovement
		sustainability = e.Alternative.SustainabilityImprovement
	}
	ev.Scores.WellnessImpact = &wellness
	ev.Scores.SustainabilityImpact = &sustainability
	return ev
}
