package routes

import (
	"net/http"

	"github.com/trackmyrvu/rvutracker/internal/api/handlers"
	"github.com/trackmyrvu/rvutracker/internal/api/middleware"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	catalogHandler   *handlers.CatalogHandler
	analyticsHandler *handlers.AnalyticsHandler
	visitHandler     *handlers.VisitHandler
	favoriteHandler  *handlers.FavoriteHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. The visit and favorite handlers may be
// nil when no backend token is configured.
func NewRouter(
	catalogHandler *handlers.CatalogHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	visitHandler *handlers.VisitHandler,
	favoriteHandler *handlers.FavoriteHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		catalogHandler:   catalogHandler,
		analyticsHandler: analyticsHandler,
		visitHandler:     visitHandler,
		favoriteHandler:  favoriteHandler,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Reference catalog endpoints
	r.mux.HandleFunc("GET /api/codes", r.catalogHandler.SearchCodes)
	r.mux.HandleFunc("GET /api/codes/{code}", r.catalogHandler.GetCode)

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/analytics", r.analyticsHandler.GetSnapshot)
		r.mux.HandleFunc("POST /api/analytics/refresh", r.analyticsHandler.Refresh)
		r.mux.HandleFunc("PUT /api/analytics/period", r.analyticsHandler.SetPeriod)
		r.mux.HandleFunc("PUT /api/analytics/range", r.analyticsHandler.SetDateRange)
		r.mux.HandleFunc("POST /api/analytics/selection", r.analyticsHandler.SelectBucket)
		r.mux.HandleFunc("DELETE /api/analytics/selection", r.analyticsHandler.ClearSelection)
	}

	// Visit endpoints
	if r.visitHandler != nil {
		r.mux.HandleFunc("GET /api/visits", r.visitHandler.ListVisits)
		r.mux.HandleFunc("POST /api/visits", r.visitHandler.CreateVisit)
		r.mux.HandleFunc("PUT /api/visits/{id}", r.visitHandler.UpdateVisit)
		r.mux.HandleFunc("DELETE /api/visits/{id}", r.visitHandler.DeleteVisit)
	}

	// Favorite endpoints
	if r.favoriteHandler != nil {
		r.mux.HandleFunc("GET /api/favorites", r.favoriteHandler.ListFavorites)
		r.mux.HandleFunc("POST /api/favorites", r.favoriteHandler.AddFavorite)
		r.mux.HandleFunc("PATCH /api/favorites/reorder", r.favoriteHandler.ReorderFavorites)
		r.mux.HandleFunc("DELETE /api/favorites/{hcpcs}", r.favoriteHandler.RemoveFavorite)
		r.mux.HandleFunc("POST /api/favorites/{hcpcs}/toggle", r.favoriteHandler.ToggleFavorite)
	}

	// Observability sits directly on the mux so it sees the matched pattern
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
