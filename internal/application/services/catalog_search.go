package services

import (
	"sort"
	"strings"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// DefaultSearchLimit caps search results when no limit is given
const DefaultSearchLimit = 100

// Match tiers, best first
const (
	tierExactCode = iota
	tierCodePrefix
	tierSubstring
)

type searchHit struct {
	entry catalogEntry
	tier  int
}

// Search returns catalog entries whose code or description contains query,
// case-insensitively. Exact code matches come first, then code prefixes,
// then everything else; each tier is ordered by code. An empty query or an
// unloaded catalog yields no results. limit <= 0 means DefaultSearchLimit.
func (s *CatalogService) Search(query string, limit int) []entities.ProcedureCode {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []entities.ProcedureCode{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	var hits []searchHit
	for _, e := range entries {
		switch {
		case e.codeLower == q:
			hits = append(hits, searchHit{entry: e, tier: tierExactCode})
		case strings.HasPrefix(e.codeLower, q):
			hits = append(hits, searchHit{entry: e, tier: tierCodePrefix})
		case strings.Contains(e.codeLower, q), strings.Contains(e.descLower, q):
			hits = append(hits, searchHit{entry: e, tier: tierSubstring})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.entry.codeLower != b.entry.codeLower {
			return a.entry.codeLower < b.entry.codeLower
		}
		return a.entry.code.Code < b.entry.code.Code
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]entities.ProcedureCode, len(hits))
	for i, h := range hits {
		results[i] = h.entry.code
	}
	return results
}
