package services

import (
	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// EnrichVisits returns copies of visits whose procedure work RVUs are
// replaced by catalog values. Codes missing from the catalog keep the value
// the backend sent. The input is never modified, and applying the function
// twice gives the same result as applying it once.
func (s *CatalogService) EnrichVisits(visits []entities.Visit) []entities.Visit {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	enriched := make([]entities.Visit, len(visits))
	for i, visit := range visits {
		enriched[i] = visit
		if visit.Procedures == nil {
			continue
		}
		procedures := make([]entities.VisitProcedure, len(visit.Procedures))
		for j, proc := range visit.Procedures {
			if entry, ok := index[normalizeCode(proc.HCPCS)]; ok {
				proc.WorkRVU = entry.WorkRVU
			}
			procedures[j] = proc
		}
		enriched[i].Procedures = procedures
	}
	return enriched
}

// EnrichDraft applies catalog RVUs and descriptions to a visit draft's
// procedure lines, returning a copy.
func (s *CatalogService) EnrichDraft(draft entities.VisitDraft) entities.VisitDraft {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	out := draft
	out.Procedures = make([]entities.ProcedureDraft, len(draft.Procedures))
	for i, proc := range draft.Procedures {
		if entry, ok := index[normalizeCode(proc.HCPCS)]; ok {
			proc.WorkRVU = entry.WorkRVU
			if proc.Description == "" {
				proc.Description = entry.Description
			}
			if proc.StatusCode == "" {
				proc.StatusCode = entry.StatusCode
			}
		}
		out.Procedures[i] = proc
	}
	return out
}
