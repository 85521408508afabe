package repositories

import (
	"context"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// FavoriteRepository defines the remote operations on a user's favorite codes
type FavoriteRepository interface {
	// List retrieves all favorites
	List(ctx context.Context) ([]entities.Favorite, error)

	// Create favorites a code
	Create(ctx context.Context, hcpcs string) (*entities.Favorite, error)

	// Delete unfavorites a code; deleting an unknown code succeeds
	Delete(ctx context.Context, hcpcs string) error

	// Reorder assigns new sort orders in bulk
	Reorder(ctx context.Context, orders []entities.FavoriteOrder) error
}
