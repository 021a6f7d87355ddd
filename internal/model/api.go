package model

import (
	"fmt"
	"strings"
	"time"
)

// Field length limits for user-supplied text.
const (
	MaxQueryLen = 4 * 1024
	MaxItemLen  = 500
	MaxTitleLen = 500
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants. The coach and ledger codes are consumed by the mobile
// client verbatim.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeMissingAPIKey    = "missing_api_key"
	ErrCodeCoachUnavailable = "coach_unavailable"
	ErrCodeInvalidDecision  = "invalid_decision"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternalError    = "internal_error"
)

// AskRequest is the request body for POST /v1/coach/ask.
type AskRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

// LogDecisionRequest is the request body for POST /v1/decisions.
type LogDecisionRequest struct {
	Query        string       `json:"query"`
	Item         string       `json:"item"`
	DecisionType DecisionType `json:"decision_type"`
	Alternative  *Alternative `json:"alternative,omitempty"`
	CostActual   *float64     `json:"cost_actual,omitempty"`
	Impacts      Breakdown    `json:"impacts"`
}

// LogDecisionResponse is the response for POST /v1/decisions.
type LogDecisionResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// AppendEventsRequest is the request body for POST /v1/events.
type AppendEventsRequest struct {
	Events []EventInput `json:"events"`
}

// EventInput is a single event in an append request.
type EventInput struct {
	EventType  EventType      `json:"event_type"`
	Category   string         `json:"category,omitempty"`
	Title      string         `json:"title,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Amount     *float64       `json:"amount,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Scores     EventScores    `json:"scores"`
}

// Validate checks an event input before it is stored.
func (in EventInput) Validate() error {
	if !in.EventType.Valid() {
		return fmt.Errorf("event_type %q is not supported", in.EventType)
	}
	if len(in.Title) > MaxTitleLen {
		return fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if in.Amount != nil && !finite(*in.Amount) {
		return fmt.Errorf("amount must be finite")
	}
	return nil
}

// AppendEventsResponse is the response for POST /v1/events.
type AppendEventsResponse struct {
	Inserted int `json:"inserted"`
}

// ParseRiskDimensions parses a comma-separated dimension list. Empty input
// selects every dimension.
func ParseRiskDimensions(s string) ([]RiskDimension, error) {
	if strings.TrimSpace(s) == "" {
		return RiskDimensions, nil
	}
	var out []RiskDimension
	for _, part := range strings.Split(s, ",") {
		d := RiskDimension(strings.TrimSpace(part))
		if !d.Valid() {
			return nil, fmt.Errorf("unknown risk dimension %q", d)
		}
		out = append(out, d)
	}
	return out, nil
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}

// MaxEventsPerRequest bounds a single POST /v1/events batch.
const MaxEventsPerRequest = 1000
