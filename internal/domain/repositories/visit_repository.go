package repositories

import (
	"context"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// VisitRepository defines the remote operations on a user's visits
type VisitRepository interface {
	// List retrieves every visit of the signed-in user
	List(ctx context.Context) ([]entities.Visit, error)

	// Create creates a visit from a draft
	Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error)

	// Update replaces a visit with a draft
	Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error)

	// Delete deletes a visit
	Delete(ctx context.Context, id string) error
}
