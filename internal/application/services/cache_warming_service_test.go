package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/trackmyrvu/rvutracker/internal/application/services"
	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

func TestCacheWarmingService_WarmsEverything(t *testing.T) {
	f := newVisitFixture(t)
	favRepo := new(MockFavoriteRepository)
	favorites := services.NewFavoriteService(favRepo, f.catalog, f.store)
	analytics := services.NewAnalyticsService(f.clock, 0)

	f.repo.On("List", mock.Anything).Return([]entities.Visit{
		visit("1", "2026-02-10", false, entities.VisitProcedure{HCPCS: "99213", Quantity: 2}),
		visit("2", "2026-02-11", true),
	}, nil)
	favRepo.On("List", mock.Anything).Return([]entities.Favorite{fav("1", "99213", 0)}, nil)

	warmer := services.NewCacheWarmingService(f.catalog, f.svc, favorites, analytics)
	result := warmer.WarmCache(context.Background())

	assert.True(t, result.CatalogLoaded)
	assert.Equal(t, 2, result.Visits)
	assert.Equal(t, 1, result.Favorites)
	assert.Equal(t, 3.0, analytics.TotalRVU())
	assert.Equal(t, 1, analytics.TotalNoShows())
}

func TestCacheWarmingService_FailuresAreNotFatal(t *testing.T) {
	f := newVisitFixture(t)
	favRepo := new(MockFavoriteRepository)
	favorites := services.NewFavoriteService(favRepo, f.catalog, f.store)

	f.repo.On("List", mock.Anything).Return(nil, apperrors.NewNetworkError("offline", nil))
	favRepo.On("List", mock.Anything).Return(nil, apperrors.NewNetworkError("offline", nil))

	missing := services.NewCatalogServiceFromFile(filepath.Join(t.TempDir(), "absent.csv"))
	warmer := services.NewCacheWarmingService(missing, f.svc, favorites, nil)
	result := warmer.WarmCache(context.Background())

	assert.False(t, result.CatalogLoaded)
	assert.Equal(t, 0, result.Visits)
	assert.Equal(t, 0, result.Favorites)
	assert.Error(t, f.svc.LastError())
}

func TestCacheWarmingService_CatalogOnly(t *testing.T) {
	catalog := newCatalog(t, sampleCatalog)

	result := services.NewCacheWarmingService(catalog, nil, nil, nil).WarmCache(context.Background())

	assert.True(t, result.CatalogLoaded)
	assert.Zero(t, result.Visits)
}
