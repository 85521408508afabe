package providers

import (
	"context"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// ProcedureEnrichmentProvider supplies authoritative work RVU weights for visits
// fetched from the backend.
type ProcedureEnrichmentProvider interface {
	// Load makes the reference data available; repeated calls are cheap.
	Load(ctx context.Context) error

	// EnrichVisits returns copies of visits with catalog RVUs applied.
	EnrichVisits(visits []entities.Visit) []entities.Visit

	// EnrichDraft returns a copy of draft with catalog RVUs applied.
	EnrichDraft(draft entities.VisitDraft) entities.VisitDraft
}

// ProcedureCatalog resolves codes against the reference catalog.
type ProcedureCatalog interface {
	Get(code string) (entities.ProcedureCode, bool)
	Search(query string, limit int) []entities.ProcedureCode
}
