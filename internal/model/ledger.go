package model

import (
	"time"

	"github.com/google/uuid"
)

// DecisionType records what the user did after seeing an analysis.
type DecisionType string

const (
	DecisionDidIt           DecisionType = "did_it"
	DecisionTookAlternative DecisionType = "took_alternative"
	DecisionSkipped         DecisionType = "skipped"
)

// Valid reports whether t is a recognized decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionDidIt, DecisionTookAlternative, DecisionSkipped:
		return true
	}
	return false
}

// DecisionLedgerEntry is an immutable record of a decision outcome.
// Corrections are new entries; existing rows are never updated.
type DecisionLedgerEntry struct {
	ID           uuid.UUID    `json:"id"`
	UserID       string       `json:"user_id"`
	Query        string       `json:"query"`
	Item         string       `json:"item"`
	DecisionType DecisionType `json:"decision_type"`
	Alternative  *Alternative `json:"alternative,omitempty"`
	CostActual   *float64     `json:"cost_actual,omitempty"`
	Impacts      Breakdown    `json:"impacts"`
	DecidedAt    time.Time    `json:"decided_at"`
}

// Savings is the money kept by taking the suggested alternative.
// Any other outcome saves nothing.
func (e DecisionLedgerEntry) Savings() float64 {
	if e.DecisionType == DecisionTookAlternative && e.Alternative != nil {
		return e.Alternative.CostSaved
	}
	return 0
}

// ActualCost is the amount of money the decision actually moved: the explicit
// cost when recorded, otherwise the cost implied by the decision type.
func (e DecisionLedgerEntry) ActualCost() float64 {
	if e.CostActual != nil {
		return *e.CostActual
	}
	switch e.DecisionType {
	case DecisionDidIt:
		return e.Impacts.CostImpact.Immediate
	case DecisionTookAlternative:
		if e.Alternative != nil {
			return e.Alternative.Cost
		}
	}
	return 0
}

// DecisionHistoryEntry is a ledger entry with its computed savings.
type DecisionHistoryEntry struct {
	DecisionLedgerEntry
	Savings float64 `json:"savings"`
}

// NewDecisionHistoryEntry attaches computed savings to an entry.
func NewDecisionHistoryEntry(e DecisionLedgerEntry) DecisionHistoryEntry {
	return DecisionHistoryEntry{DecisionLedgerEntry: e, Savings: e.Savings()}
}
