package handlers

import (
	"context"
	"net/http"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// FavoriteService is the session favorite list as used by the API
type FavoriteService interface {
	Refresh(ctx context.Context) ([]entities.Favorite, error)
	Entries() []entities.FavoriteEntry
	Add(ctx context.Context, hcpcs string) (*entities.Favorite, error)
	Remove(ctx context.Context, hcpcs string) error
	Toggle(ctx context.Context, hcpcs string) (bool, error)
	Reorder(ctx context.Context, codes []string) error
}

// FavoriteHandler handles favorite requests
type FavoriteHandler struct {
	favorites FavoriteService
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favorites FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

type addFavoriteRequest struct {
	HCPCS string `json:"hcpcs"`
}

type reorderFavoritesRequest struct {
	HCPCS []string `json:"hcpcs"`
}

// ListFavorites handles GET /api/favorites; ?refresh=true refetches
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := h.favorites.Refresh(r.Context()); err != nil {
			respondWithAppError(w, err)
			return
		}
	}
	h.respondWithEntries(w, http.StatusOK)
}

// AddFavorite handles POST /api/favorites
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	favorite, err := h.favorites.Add(r.Context(), req.HCPCS)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, favorite)
}

// RemoveFavorite handles DELETE /api/favorites/{hcpcs}
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Remove(r.Context(), r.PathValue("hcpcs")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/favorites/{hcpcs}/toggle
func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	hcpcs := r.PathValue("hcpcs")
	favorited, err := h.favorites.Toggle(r.Context(), hcpcs)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hcpcs":     hcpcs,
		"favorited": favorited,
	})
}

// ReorderFavorites handles PATCH /api/favorites/reorder
func (h *FavoriteHandler) ReorderFavorites(w http.ResponseWriter, r *http.Request) {
	var req reorderFavoritesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if len(req.HCPCS) == 0 {
		respondWithError(w, http.StatusBadRequest, "hcpcs order is required")
		return
	}

	if err := h.favorites.Reorder(r.Context(), req.HCPCS); err != nil {
		respondWithAppError(w, err)
		return
	}
	h.respondWithEntries(w, http.StatusOK)
}

func (h *FavoriteHandler) respondWithEntries(w http.ResponseWriter, status int) {
	entries := h.favorites.Entries()
	respondWithJSON(w, status, map[string]interface{}{
		"favorites": entries,
		"count":     len(entries),
	})
}
