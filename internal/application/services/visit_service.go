package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	"github.com/trackmyrvu/rvutracker/internal/domain/repositories"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

// MaxVisitAgeYears bounds how far back a visit may be dated
const MaxVisitAgeYears = 10

// VisitService keeps the session's enriched visit list. Fetches are guarded
// so only one runs at a time, and a fetch that was overtaken by a local
// change does not overwrite it.
type VisitService struct {
	repo     repositories.VisitRepository
	enricher providers.ProcedureEnrichmentProvider
	cache    *CacheStore
	clock    providers.Clock
	maxAge   time.Duration
	logger   zerolog.Logger

	loading    atomic.Bool
	generation atomic.Uint64

	mu      sync.RWMutex
	visits  []entities.Visit
	lastErr error
}

// NewVisitService creates a visit service. cache may be nil.
func NewVisitService(
	repo repositories.VisitRepository,
	enricher providers.ProcedureEnrichmentProvider,
	cache *CacheStore,
	clock providers.Clock,
) *VisitService {
	if clock == nil {
		clock = providers.SystemClock
	}
	return &VisitService{
		repo:     repo,
		enricher: enricher,
		cache:    cache,
		clock:    clock,
		maxAge:   VisitsFreshnessWindow,
		logger:   log.Logger.With().Str("component", "visits").Logger(),
	}
}

// SetFreshnessWindow overrides VisitsFreshnessWindow
func (s *VisitService) SetFreshnessWindow(d time.Duration) {
	s.maxAge = d
}

// Visits returns a copy of the current list
func (s *VisitService) Visits() []entities.Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Visit, len(s.visits))
	copy(out, s.visits)
	return out
}

// LastError returns the error of the most recent failed refresh
func (s *VisitService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsLoading reports whether a refresh is in flight
func (s *VisitService) IsLoading() bool {
	return s.loading.Load()
}

// Load returns cached visits when they are fresh, otherwise shows whatever
// is cached and refreshes from the backend. On a failed refresh the cached
// visits are returned together with the error.
func (s *VisitService) Load(ctx context.Context) ([]entities.Visit, error) {
	if s.cache != nil {
		var cached []entities.Visit
		found, fresh, err := s.cache.LoadFresh(ctx, CacheKeyVisits, &cached, s.maxAge)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read visits cache")
		}
		if found {
			s.setVisits(s.enrich(ctx, cached))
			if fresh {
				return s.Visits(), nil
			}
		}
	}
	return s.Refresh(ctx)
}

// Refresh fetches visits from the backend, enriches them and caches them.
// A call made while another refresh is in flight returns the current list
// without fetching.
func (s *VisitService) Refresh(ctx context.Context) ([]entities.Visit, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return s.Visits(), nil
	}
	defer s.loading.Store(false)

	gen := s.generation.Add(1)

	fetched, err := s.repo.List(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		if apperrors.IsAuthExpired(err) {
			s.logger.Warn().Msg("Session expired while fetching visits")
		} else {
			s.logger.Error().Err(err).Msg("Failed to fetch visits")
		}
		return s.Visits(), err
	}

	enriched := s.enrich(ctx, fetched)
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding superseded visits fetch")
		return s.Visits(), nil
	}
	s.visits = enriched
	s.lastErr = nil
	s.mu.Unlock()
	s.saveCache(ctx)

	s.logger.Debug().Int("visits", len(enriched)).Msg("Visits refreshed")
	return s.Visits(), nil
}

// Create validates and submits a draft, then adds the new visit to the list
func (s *VisitService) Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error) {
	draft, err := s.prepareDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	visit := s.enrich(ctx, []entities.Visit{*created})[0]

	s.upsert(visit)
	s.saveCache(ctx)
	return &visit, nil
}

// Update validates and submits a draft for an existing visit
func (s *VisitService) Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("visit ID is required")
	}
	draft, err := s.prepareDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	visit := s.enrich(ctx, []entities.Visit{*updated})[0]

	s.upsert(visit)
	s.saveCache(ctx)
	return &visit, nil
}

// Delete removes a visit locally before deleting it on the backend. If the
// backend call fails the list is reloaded and the error returned.
func (s *VisitService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("visit ID is required")
	}

	s.mu.Lock()
	s.generation.Add(1)
	for i := range s.visits {
		if s.visits[i].ID == id {
			s.visits = append(s.visits[:i:i], s.visits[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("visit_id", id).Msg("Failed to delete visit, reloading")
		if _, refreshErr := s.Refresh(ctx); refreshErr != nil {
			s.logger.Warn().Err(refreshErr).Msg("Reload after failed delete also failed")
		}
		return err
	}
	s.saveCache(ctx)
	return nil
}

// ClearCache drops the cached visits
func (s *VisitService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, CacheKeyVisits)
}

// upsert replaces the visit with the same ID or puts visit first. A fetch
// already in flight is superseded.
func (s *VisitService) upsert(visit entities.Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)
	for i := range s.visits {
		if s.visits[i].ID == visit.ID {
			s.visits[i] = visit
			return
		}
	}
	s.visits = append([]entities.Visit{visit}, s.visits...)
}

func (s *VisitService) setVisits(visits []entities.Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = visits
}

func (s *VisitService) enrich(ctx context.Context, visits []entities.Visit) []entities.Visit {
	if s.enricher == nil {
		return visits
	}
	if err := s.enricher.Load(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Reference catalog unavailable, using backend RVUs")
	}
	return s.enricher.EnrichVisits(visits)
}

func (s *VisitService) prepareDraft(ctx context.Context, draft entities.VisitDraft) (entities.VisitDraft, error) {
	draft = NormalizeVisitDraft(draft)
	if err := ValidateVisitDraft(draft, s.clock.Now()); err != nil {
		return draft, err
	}
	if s.enricher != nil {
		if err := s.enricher.Load(ctx); err == nil {
			draft = s.enricher.EnrichDraft(draft)
		}
	}
	return draft, nil
}

func (s *VisitService) saveCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, CacheKeyVisits, s.Visits()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache visits")
	}
}

// NormalizeVisitDraft trims codes, clamps quantities to at least 1 and drops
// empty notes and times
func NormalizeVisitDraft(draft entities.VisitDraft) entities.VisitDraft {
	out := draft
	out.Date = strings.TrimSpace(draft.Date)
	if out.Notes != nil && strings.TrimSpace(*out.Notes) == "" {
		out.Notes = nil
	}
	if out.Time != nil && strings.TrimSpace(*out.Time) == "" {
		out.Time = nil
	}
	out.Procedures = make([]entities.ProcedureDraft, len(draft.Procedures))
	for i, proc := range draft.Procedures {
		proc.HCPCS = strings.TrimSpace(proc.HCPCS)
		if proc.Quantity < 1 {
			proc.Quantity = 1
		}
		out.Procedures[i] = proc
	}
	return out
}

// ValidateVisitDraft checks a draft before submission: a visit needs a
// procedure unless it is a no-show, and its date may be neither in the
// future nor more than MaxVisitAgeYears back from now.
func ValidateVisitDraft(draft entities.VisitDraft, now time.Time) error {
	if !draft.IsNoShow && len(draft.Procedures) == 0 {
		return apperrors.NewValidationError("please add at least one procedure or mark as no-show")
	}
	for _, proc := range draft.Procedures {
		if proc.HCPCS == "" {
			return apperrors.NewValidationError("procedure HCPCS code is required")
		}
	}

	if len(draft.Date) != len(entities.VisitDateLayout) {
		return apperrors.NewValidationError("visit date must be formatted as YYYY-MM-DD")
	}
	date, ok := entities.ParseVisitDate(draft.Date)
	if !ok {
		return apperrors.NewValidationError("visit date must be formatted as YYYY-MM-DD")
	}
	today := calendarDay(now)
	if date.After(today) {
		return apperrors.NewValidationError("visit date cannot be in the future")
	}
	if date.Before(calendarDay(now.AddDate(-MaxVisitAgeYears, 0, 0))) {
		return apperrors.NewValidationError("visit date is too far in the past")
	}

	if draft.Time != nil {
		if _, err := time.Parse("15:04:05", *draft.Time); err != nil {
			return apperrors.NewValidationError("visit time must be formatted as HH:MM:SS")
		}
	}
	return nil
}
