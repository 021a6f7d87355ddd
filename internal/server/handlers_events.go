package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/lifemosaic/negotiator/internal/model"
)

// HandleAppendEvents handles POST /v1/events. The batch is validated as a
// whole before anything is stored.
func (h *Handlers) HandleAppendEvents(w http.ResponseWriter, r *http.Request) {
	var req model.AppendEventsRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Events) == 0 {
		badRequest(w, r, fmt.Errorf("events must not be empty"))
		return
	}
	if len(req.Events) > model.MaxEventsPerRequest {
		badRequest(w, r, fmt.Errorf("at most %d events per request", model.MaxEventsPerRequest))
		return
	}

	uid := userID(r)
	now := h.now().UTC()
	events := make([]model.Event, len(req.Events))
	for i, in := range req.Events {
		if err := in.Validate(); err != nil {
			badRequest(w, r, fmt.Errorf("events[%d]: %w", i, err))
			return
		}
		occurred := now
		if in.OccurredAt != nil {
			occurred = in.OccurredAt.UTC()
		}
		events[i] = model.Event{
			ID:         uuid.New(),
			UserID:     uid,
			EventType:  in.EventType,
			Category:   in.Category,
			Title:      in.Title,
			OccurredAt: occurred,
			Amount:     in.Amount,
			Metadata:   in.Metadata,
			Scores:     in.Scores,
		}
	}

	n, err := h.store.InsertEvents(r.Context(), events)
	if err != nil {
		h.writeServiceError(w, r, "append events", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.AppendEventsResponse{Inserted: int(n)})
}
