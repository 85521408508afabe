package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
)

// Catalog is the reference catalog as seen by the API
type Catalog interface {
	Load(ctx context.Context) error
	IsLoaded() bool
	Search(query string, limit int) []entities.ProcedureCode
	Get(code string) (entities.ProcedureCode, bool)
}

// CatalogHandler handles reference catalog requests
type CatalogHandler struct {
	catalog      Catalog
	defaultLimit int
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog Catalog, defaultLimit int) *CatalogHandler {
	return &CatalogHandler{
		catalog:      catalog,
		defaultLimit: defaultLimit,
	}
}

// SearchCodes handles GET /api/codes?q=&limit=
func (h *CatalogHandler) SearchCodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	// An unavailable catalog yields an empty result rather than an error
	if err := h.catalog.Load(r.Context()); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Reference catalog unavailable for search")
	}

	results := h.catalog.Search(query, limit)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"codes":          results,
		"count":          len(results),
		"catalog_loaded": h.catalog.IsLoaded(),
	})
}

// GetCode handles GET /api/codes/{code}
func (h *CatalogHandler) GetCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.catalog.Load(r.Context()); err != nil {
		respondWithAppError(w, err)
		return
	}

	entry, ok := h.catalog.Get(code)
	if !ok {
		respondWithError(w, http.StatusNotFound, "code "+code+" is not in the reference catalog")
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}
