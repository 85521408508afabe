package handlers

import (
	"context"
	"net/http"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// VisitService is the session visit list as used by the API
type VisitService interface {
	VisitLoader
	Visits() []entities.Visit
	Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error)
	Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error)
	Delete(ctx context.Context, id string) error
}

// VisitHandler handles visit requests. Every change is pushed to the
// analytics aggregator so its figures match the visit list.
type VisitHandler struct {
	visits    VisitService
	analytics Analytics
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(visits VisitService, analytics Analytics) *VisitHandler {
	return &VisitHandler{
		visits:    visits,
		analytics: analytics,
	}
}

// ListVisits handles GET /api/visits; ?refresh=true skips the cache
func (h *VisitHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	var (
		visits []entities.Visit
		err    error
	)
	if r.URL.Query().Get("refresh") == "true" {
		visits, err = h.visits.Refresh(r.Context())
	} else {
		visits, err = h.visits.Load(r.Context())
	}
	h.sync()
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"visits": visits,
		"count":  len(visits),
	})
}

// CreateVisit handles POST /api/visits
func (h *VisitHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var draft entities.VisitDraft
	if err := decodeJSON(r, &draft); err != nil {
		respondWithAppError(w, err)
		return
	}

	visit, err := h.visits.Create(r.Context(), draft)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	h.sync()
	respondWithJSON(w, http.StatusCreated, visit)
}

// UpdateVisit handles PUT /api/visits/{id}
func (h *VisitHandler) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "visit ID is required")
		return
	}

	var draft entities.VisitDraft
	if err := decodeJSON(r, &draft); err != nil {
		respondWithAppError(w, err)
		return
	}

	visit, err := h.visits.Update(r.Context(), id, draft)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	h.sync()
	respondWithJSON(w, http.StatusOK, visit)
}

// DeleteVisit handles DELETE /api/visits/{id}
func (h *VisitHandler) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "visit ID is required")
		return
	}

	err := h.visits.Delete(r.Context(), id)
	h.sync()
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VisitHandler) sync() {
	if h.analytics != nil {
		h.analytics.SetVisits(h.visits.Visits())
	}
}
