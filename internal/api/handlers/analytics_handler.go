package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
)

// Analytics is the aggregator state exposed over the API
type Analytics interface {
	SetVisits(visits []entities.Visit)
	SetPeriod(period entities.Period)
	SetDateRange(start, end time.Time)
	SelectBucket(index int)
	ClearSelection()
	Snapshot() entities.AnalyticsSnapshot
}

// VisitLoader supplies enriched visits for aggregation
type VisitLoader interface {
	Load(ctx context.Context) ([]entities.Visit, error)
	Refresh(ctx context.Context) ([]entities.Visit, error)
}

// AnalyticsHandler handles analytics requests
type AnalyticsHandler struct {
	analytics Analytics
	visits    VisitLoader
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics Analytics, visits VisitLoader) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		visits:    visits,
	}
}

type periodRequest struct {
	Period string `json:"period"`
}

type dateRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type selectRequest struct {
	Index int `json:"index"`
}

// GetSnapshot handles GET /api/analytics
func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// Refresh handles POST /api/analytics/refresh. Visits already held are
// kept when the backend fetch fails; the error is still reported.
func (h *AnalyticsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	visits, err := h.visits.Refresh(r.Context())
	h.analytics.SetVisits(visits)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Analytics refresh failed")
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// SetPeriod handles PUT /api/analytics/period
func (h *AnalyticsHandler) SetPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	period, err := entities.ParsePeriod(req.Period)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.analytics.SetPeriod(period)
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// SetDateRange handles PUT /api/analytics/range
func (h *AnalyticsHandler) SetDateRange(w http.ResponseWriter, r *http.Request) {
	var req dateRangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	start, err := time.Parse(entities.VisitDateLayout, req.Start)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "start must be formatted as YYYY-MM-DD")
		return
	}
	end, err := time.Parse(entities.VisitDateLayout, req.End)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "end must be formatted as YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		respondWithError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	h.analytics.SetDateRange(start, end)
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// SelectBucket handles POST /api/analytics/selection
func (h *AnalyticsHandler) SelectBucket(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.Index < 0 {
		respondWithError(w, http.StatusBadRequest, "index must be non-negative")
		return
	}

	h.analytics.SelectBucket(req.Index)
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}

// ClearSelection handles DELETE /api/analytics/selection
func (h *AnalyticsHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.analytics.ClearSelection()
	respondWithJSON(w, http.StatusOK, h.analytics.Snapshot())
}
