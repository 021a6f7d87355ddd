package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of life event a user logged.
type EventType string

const (
	EventSpending EventType = "spending"
	EventIncome   EventType = "income"
	EventFood     EventType = "food"
	EventMovement EventType = "movement"
	EventHabit    EventType = "habit"
	EventMood     EventType = "mood"
	EventSleep    EventType = "sleep"
	EventSocial   EventType = "social"
	EventMeds     EventType = "meds"
	EventWork     EventType = "work"
	EventStudy    EventType = "study"
	EventBreak    EventType = "break"
	EventWater    EventType = "water"
	EventPain     EventType = "pain"
)

var validEventTypes = map[EventType]bool{
	EventSpending: true, EventIncome: true, EventFood: true, EventMovement: true,
	EventHabit: true, EventMood: true, EventSleep: true, EventSocial: true,
	EventMeds: true, EventWork: true, EventStudy: true, EventBreak: true,
	EventWater: true, EventPain: true,
}

// Valid reports whether t is a recognized event type.
func (t EventType) Valid() bool { return validEventTypes[t] }

// EventScores are the per-event impact scores attached at logging time.
type EventScores struct {
	WellnessImpact       *float64 `json:"wellness_impact,omitempty"`
	CostImpact           *float64 `json:"cost_impact,omitempty"`
	SustainabilityImpact *float64 `json:"sustainability_impact,omitempty"`
}

// Event is a single entry in a user's life-event stream. Append-only.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	UserID     string         `json:"user_id"`
	EventType  EventType      `json:"event_type"`
	Category   string         `json:"category,omitempty"`
	Title      string         `json:"title,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Amount     *float64       `json:"amount,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Scores     EventScores    `json:"scores"`
}

// MetadataFloat returns a numeric metadata value. JSON numbers decode as
// float64; integer types appear when events are built in-process.
func (e Event) MetadataFloat(key string) (float64, bool) {
	switch v := e.Metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// MetadataBool returns a boolean metadata value.
func (e Event) MetadataBool(key string) bool {
	b, _ := e.Metadata[key].(bool)
	return b
}

// MetadataString returns a string metadata value.
func (e Event) MetadataString(key string) string {
	s, _ := e.Metadata[key].(string)
	return s
}
