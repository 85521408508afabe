package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
)

// WarmResult reports what a warm-up managed to load
type WarmResult struct {
	CatalogLoaded bool
	Visits        int
	Favorites     int
	Duration      time.Duration
}

// CacheWarmingService primes the reference catalog and the session lists
// before the first request
type CacheWarmingService struct {
	catalog   providers.ProcedureEnrichmentProvider
	visits    *VisitService
	favorites *FavoriteService
	analytics *AnalyticsService
}

// NewCacheWarmingService creates a warmer. visits, favorites and analytics
// may be nil when no backend is configured.
func NewCacheWarmingService(
	catalog providers.ProcedureEnrichmentProvider,
	visits *VisitService,
	favorites *FavoriteService,
	analytics *AnalyticsService,
) *CacheWarmingService {
	return &CacheWarmingService{
		catalog:   catalog,
		visits:    visits,
		favorites: favorites,
		analytics: analytics,
	}
}

// WarmCache loads everything concurrently. Individual failures are logged
// and never fail the warm-up; cached data is kept when a refresh fails.
func (s *CacheWarmingService) WarmCache(ctx context.Context) WarmResult {
	start := time.Now()
	log.Info().Msg("Starting cache warming...")

	var result WarmResult
	g, gctx := errgroup.WithContext(ctx)

	if s.catalog != nil {
		g.Go(func() error {
			if err := s.catalog.Load(gctx); err != nil {
				log.Warn().Err(err).Msg("Failed to warm reference catalog")
				return nil
			}
			result.CatalogLoaded = true
			return nil
		})
	}

	if s.visits != nil {
		g.Go(func() error {
			visits, err := s.visits.Load(gctx)
			if err != nil {
				log.Warn().Err(err).Int("cached", len(visits)).Msg("Failed to warm visits")
			}
			if s.analytics != nil {
				s.analytics.SetVisits(visits)
			}
			result.Visits = len(visits)
			return nil
		})
	}

	if s.favorites != nil {
		g.Go(func() error {
			s.favorites.LoadCached(gctx)
			if _, err := s.favorites.Refresh(gctx); err != nil {
				log.Warn().Err(err).Msg("Failed to warm favorites")
			}
			result.Favorites = len(s.favorites.Favorites())
			return nil
		})
	}

	_ = g.Wait()
	result.Duration = time.Since(start)

	log.Info().
		Bool("catalog_loaded", result.CatalogLoaded).
		Int("visits", result.Visits).
		Int("favorites", result.Favorites).
		Dur("duration", result.Duration).
		Msg("Cache warming completed")
	return result
}
