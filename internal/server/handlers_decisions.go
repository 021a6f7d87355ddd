package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
)

// HandleLogDecision handles POST /v1/decisions.
func (h *Handlers) HandleLogDecision(w http.ResponseWriter, r *http.Request) {
	var req model.LogDecisionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	id, err := h.ledger.Record(r.Context(), userID(r), req)
	if err != nil {
		h.writeServiceError(w, r, "log decision", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.LogDecisionResponse{
		ID:      id.String(),
		Message: "Decision logged successfully",
	})
}

// HandleListDecisions handles GET /v1/decisions.
func (h *Handlers) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", ledger.DefaultLimit)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	limit, offset = ledger.NormalizePage(limit, offset)

	entries, err := h.ledger.List(r.Context(), userID(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, "list decisions", err)
		return
	}
	writeList(w, r, entries, len(entries) == limit, limit, offset)
}

// HandleGetDecision handles GET /v1/decisions/{id}.
func (h *Handlers) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid decision id")
		return
	}

	entry, err := h.ledger.Get(r.Context(), userID(r), id)
	if err != nil {
		h.writeServiceError(w, r, "get decision", err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}
