package trackmyrvu

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/domain/repositories"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

type favoriteAPI struct {
	client *HTTPClient
}

// Favorites returns the favorite endpoints as a repository
func (c *HTTPClient) Favorites() repositories.FavoriteRepository {
	return &favoriteAPI{client: c}
}

// List handles GET /favorites
func (a *favoriteAPI) List(ctx context.Context) ([]entities.Favorite, error) {
	var favorites []entities.Favorite
	err := a.client.do(ctx, request{
		method:   http.MethodGet,
		path:     "/favorites",
		resource: "favorites.list",
		out:      &favorites,
	})
	if err != nil {
		return nil, err
	}
	if favorites == nil {
		favorites = []entities.Favorite{}
	}
	return favorites, nil
}

// Create handles POST /favorites
func (a *favoriteAPI) Create(ctx context.Context, hcpcs string) (*entities.Favorite, error) {
	if strings.TrimSpace(hcpcs) == "" {
		return nil, apperrors.NewValidationError("hcpcs code is required")
	}
	favorite := &entities.Favorite{}
	err := a.client.do(ctx, request{
		method:   http.MethodPost,
		path:     "/favorites",
		resource: "favorites.create",
		body:     map[string]string{"hcpcs": hcpcs},
		out:      favorite,
	})
	if err != nil {
		return nil, err
	}
	return favorite, nil
}

// Delete handles DELETE /favorites/{hcpcs}; a 404 means it is already gone
func (a *favoriteAPI) Delete(ctx context.Context, hcpcs string) error {
	if strings.TrimSpace(hcpcs) == "" {
		return apperrors.NewValidationError("hcpcs code is required")
	}
	return a.client.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/favorites/" + url.PathEscape(hcpcs),
		resource: "favorites.delete",
		okStatus: []int{http.StatusNotFound},
	})
}

// Reorder handles PATCH /favorites/reorder
func (a *favoriteAPI) Reorder(ctx context.Context, orders []entities.FavoriteOrder) error {
	if orders == nil {
		orders = []entities.FavoriteOrder{}
	}
	return a.client.do(ctx, request{
		method:   http.MethodPatch,
		path:     "/favorites/reorder",
		resource: "favorites.reorder",
		body:     map[string][]entities.FavoriteOrder{"favorites": orders},
	})
}
