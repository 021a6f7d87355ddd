package server

import (
	"net/http"

	"github.com/lifemosaic/negotiator/internal/model"
)

// HandleAsk handles POST /v1/coach/ask.
func (h *Handlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req model.AskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	result, err := h.coach.Ask(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "coach ask", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
