package server

import (
	"net/http"

	"github.com/lifemosaic/negotiator/internal/model"
)

// HandleComparison handles GET /v1/analytics/comparison.
func (h *Handlers) HandleComparison(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "intervention_date")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	window, err := queryInt(r, "window_days", 0)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	metric := model.Metric(r.URL.Query().Get("metric"))

	result, err := h.comparison.Compare(r.Context(), userID(r), metric, date, window)
	if err != nil {
		h.writeServiceError(w, r, "comparison", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleTrends handles GET /v1/analytics/trends.
func (h *Handlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	granularity := model.Granularity(r.URL.Query().Get("granularity"))
	metric := model.Metric(r.URL.Query().Get("metric"))

	series, err := h.comparison.Trend(r.Context(), userID(r), metric, start, end, granularity)
	if err != nil {
		h.writeServiceError(w, r, "trends", err)
		return
	}
	writeJSON(w, r, http.StatusOK, series)
}

// HandleDashboardStats handles GET /v1/analytics/dashboard-stats.
func (h *Handlers) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	period := model.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = model.PeriodWeek
	}

	stats, err := h.comparison.PeriodStats(r.Context(), userID(r), period)
	if err != nil {
		h.writeServiceError(w, r, "dashboard stats", err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// HandleBreakdown handles GET /v1/analytics/breakdown.
func (h *Handlers) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	kind := model.BreakdownKind(r.URL.Query().Get("type"))

	breakdown, err := h.comparison.Breakdown(r.Context(), userID(r), kind, start, end)
	if err != nil {
		h.writeServiceError(w, r, "breakdown", err)
		return
	}
	writeJSON(w, r, http.StatusOK, breakdown)
}

// HandleScoreHistory handles GET /v1/analytics/score-history.
func (h *Handlers) HandleScoreHistory(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		badRequest(w, r, err)
		return
	}

	history, err := h.comparison.ScoreHistory(r.Context(), userID(r), start, end)
	if err != nil {
		h.writeServiceError(w, r, "score history", err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}
