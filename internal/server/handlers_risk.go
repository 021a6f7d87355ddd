package server

import (
	"net/http"

	"github.com/lifemosaic/negotiator/internal/model"
)

// HandleRisk handles GET /v1/risk/{dimension}.
func (h *Handlers) HandleRisk(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	dim := model.RiskDimension(r.PathValue("dimension"))

	a, err := h.risk.Assess(r.Context(), userID(r), dim, days)
	if err != nil {
		h.writeServiceError(w, r, "risk", err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandleRiskHistory handles GET /v1/risk/history.
func (h *Handlers) HandleRiskHistory(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	dims, err := model.ParseRiskDimensions(r.URL.Query().Get("types"))
	if err != nil {
		badRequest(w, r, err)
		return
	}

	hist, err := h.risk.History(r.Context(), userID(r), days, dims)
	if err != nil {
		h.writeServiceError(w, r, "risk history", err)
		return
	}
	writeJSON(w, r, http.StatusOK, hist)
}
