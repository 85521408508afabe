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

type visitAPI struct {
	client *HTTPClient
}

// Visits returns the visit endpoints as a repository
func (c *HTTPClient) Visits() repositories.VisitRepository {
	return &visitAPI{client: c}
}

// List handles GET /visits
func (a *visitAPI) List(ctx context.Context) ([]entities.Visit, error) {
	var visits []entities.Visit
	err := a.client.do(ctx, request{
		method:   http.MethodGet,
		path:     "/visits",
		resource: "visits.list",
		out:      &visits,
	})
	if err != nil {
		return nil, err
	}
	if visits == nil {
		visits = []entities.Visit{}
	}
	return visits, nil
}

// Create handles POST /visits
func (a *visitAPI) Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error) {
	visit := &entities.Visit{}
	err := a.client.do(ctx, request{
		method:   http.MethodPost,
		path:     "/visits",
		resource: "visits.create",
		body:     draft,
		out:      visit,
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// Update handles PUT /visits/{id}
func (a *visitAPI) Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("visit id is required")
	}
	visit := &entities.Visit{}
	err := a.client.do(ctx, request{
		method:   http.MethodPut,
		path:     "/visits/" + url.PathEscape(id),
		resource: "visits.update",
		body:     draft,
		out:      visit,
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// Delete handles DELETE /visits/{id}
func (a *visitAPI) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("visit id is required")
	}
	return a.client.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/visits/" + url.PathEscape(id),
		resource: "visits.delete",
	})
}
