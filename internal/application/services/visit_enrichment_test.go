package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

func sampleVisits() []entities.Visit {
	return []entities.Visit{
		{
			ID:   "1",
			Date: "2026-02-10",
			Procedures: []entities.VisitProcedure{
				{HCPCS: "99213", WorkRVU: 0.0, Quantity: 1},
				{HCPCS: "XXXXX", WorkRVU: 0.7, Quantity: 2},
			},
		},
		{ID: "2", Date: "2026-02-11", IsNoShow: true},
	}
}

func TestEnrichVisits_AppliesCatalogRVU(t *testing.T) {
	catalog := loadedCatalog(t, sampleCatalog)
	input := sampleVisits()

	enriched := catalog.EnrichVisits(input)

	require.Len(t, enriched, 2)
	assert.Equal(t, 1.5, enriched[0].Procedures[0].WorkRVU)
	assert.Equal(t, 0.7, enriched[0].Procedures[1].WorkRVU, "unknown code keeps backend value")
	assert.Nil(t, enriched[1].Procedures)

	// Input is untouched
	assert.Equal(t, 0.0, input[0].Procedures[0].WorkRVU)
}

func TestEnrichVisits_CaseInsensitiveCodes(t *testing.T) {
	catalog := loadedCatalog(t, sampleCatalog)

	enriched := catalog.EnrichVisits([]entities.Visit{{
		ID:         "1",
		Date:       "2026-02-10",
		Procedures: []entities.VisitProcedure{{HCPCS: "G0438", Quantity: 1}},
	}})
	assert.Equal(t, 2.43, enriched[0].Procedures[0].WorkRVU)
}

func TestEnrichVisits_Idempotent(t *testing.T) {
	catalog := loadedCatalog(t, sampleCatalog)

	once := catalog.EnrichVisits(sampleVisits())
	twice := catalog.EnrichVisits(once)
	assert.Equal(t, once, twice)
}

func TestEnrichVisits_UnloadedCatalogPassesThrough(t *testing.T) {
	catalog := newCatalog(t, sampleCatalog)

	input := sampleVisits()
	assert.Equal(t, input, catalog.EnrichVisits(input))
}

func TestEnrichDraft_FillsCatalogFields(t *testing.T) {
	catalog := loadedCatalog(t, sampleCatalog)

	draft := entities.VisitDraft{
		Date: "2026-02-10",
		Procedures: []entities.ProcedureDraft{
			{HCPCS: "99213", Quantity: 2},
			{HCPCS: "XXXXX", WorkRVU: 0.3, Quantity: 1},
		},
	}
	enriched := catalog.EnrichDraft(draft)

	assert.Equal(t, 1.5, enriched.Procedures[0].WorkRVU)
	assert.Equal(t, "Office visit", enriched.Procedures[0].Description)
	assert.Equal(t, 0.3, enriched.Procedures[1].WorkRVU)
	assert.InDelta(t, 3.3, enriched.TotalWorkRVU(), 1e-9)
	assert.Equal(t, 0.0, draft.Procedures[0].WorkRVU)
}
