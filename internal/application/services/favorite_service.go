package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	"github.com/trackmyrvu/rvutracker/internal/domain/repositories"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

// localFavoritePrefix marks favorites not yet confirmed by the backend
const localFavoritePrefix = "local-"

// FavoriteService keeps the session's ordered favorite codes. Changes are
// applied locally first and rolled back by reloading when the backend
// rejects them.
type FavoriteService struct {
	repo    repositories.FavoriteRepository
	catalog providers.ProcedureCatalog
	cache   *CacheStore
	logger  zerolog.Logger

	loading    atomic.Bool
	generation atomic.Uint64

	mu        sync.RWMutex
	favorites []entities.Favorite
	lastErr   error
}

// NewFavoriteService creates a favorite service. catalog and cache may be nil.
func NewFavoriteService(
	repo repositories.FavoriteRepository,
	catalog providers.ProcedureCatalog,
	cache *CacheStore,
) *FavoriteService {
	return &FavoriteService{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
		logger:  log.Logger.With().Str("component", "favorites").Logger(),
	}
}

// Favorites returns a copy of the current list in display order
func (s *FavoriteService) Favorites() []entities.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Favorite, len(s.favorites))
	copy(out, s.favorites)
	return out
}

// Entries returns the favorites resolved against the catalog
func (s *FavoriteService) Entries() []entities.FavoriteEntry {
	favorites := s.Favorites()
	entries := make([]entities.FavoriteEntry, len(favorites))
	for i, fav := range favorites {
		entries[i] = entities.FavoriteEntry{Favorite: fav}
		if s.catalog == nil {
			continue
		}
		if code, ok := s.catalog.Get(fav.HCPCS); ok {
			entries[i].Description = code.Description
			entries[i].StatusCode = code.StatusCode
			entries[i].WorkRVU = code.WorkRVU
			entries[i].Known = true
		}
	}
	return entries
}

// LastError returns the error of the most recent failed refresh
func (s *FavoriteService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsFavorited reports whether hcpcs is in the list
func (s *FavoriteService) IsFavorited(hcpcs string) bool {
	_, ok := s.Get(hcpcs)
	return ok
}

// Get returns the favorite for hcpcs
func (s *FavoriteService) Get(hcpcs string) (entities.Favorite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fav := range s.favorites {
		if fav.HCPCS == hcpcs {
			return fav, true
		}
	}
	return entities.Favorite{}, false
}

// LoadCached restores favorites saved by a previous session
func (s *FavoriteService) LoadCached(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	var cached []entities.Favorite
	found, err := s.cache.Load(ctx, CacheKeyFavorites, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read favorites cache")
		return false
	}
	if !found {
		return false
	}
	s.mu.Lock()
	s.favorites = cached
	s.mu.Unlock()
	return true
}

// Refresh fetches favorites from the backend. A call made while another
// refresh is in flight returns the current list without fetching.
func (s *FavoriteService) Refresh(ctx context.Context) ([]entities.Favorite, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return s.Favorites(), nil
	}
	defer s.loading.Store(false)

	gen := s.generation.Add(1)

	fetched, err := s.repo.List(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("Failed to fetch favorites")
		return s.Favorites(), err
	}

	sort.SliceStable(fetched, func(i, j int) bool {
		return fetched[i].SortOrder < fetched[j].SortOrder
	})
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding superseded favorites fetch")
		return s.Favorites(), nil
	}
	s.favorites = fetched
	s.lastErr = nil
	s.mu.Unlock()
	s.saveCache(ctx)
	return s.Favorites(), nil
}

// Add favorites a catalog code. Adding an existing favorite is a no-op.
func (s *FavoriteService) Add(ctx context.Context, hcpcs string) (*entities.Favorite, error) {
	hcpcs = strings.TrimSpace(hcpcs)
	if hcpcs == "" {
		return nil, apperrors.NewValidationError("HCPCS code is required")
	}
	if s.catalog != nil {
		code, ok := s.catalog.Get(hcpcs)
		if !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("HCPCS code %s is not in the reference catalog", hcpcs), nil)
		}
		hcpcs = code.Code
	}
	if existing, ok := s.Get(hcpcs); ok {
		return &existing, nil
	}

	placeholder := entities.Favorite{
		ID:    localFavoritePrefix + uuid.NewString(),
		HCPCS: hcpcs,
	}
	s.mu.Lock()
	s.generation.Add(1)
	placeholder.SortOrder = len(s.favorites)
	s.favorites = append(s.favorites, placeholder)
	s.mu.Unlock()

	created, err := s.repo.Create(ctx, hcpcs)
	if err != nil {
		s.replace(placeholder.ID, nil)
		s.logger.Error().Err(err).Str("hcpcs", hcpcs).Msg("Failed to add favorite")
		return nil, err
	}

	s.replace(placeholder.ID, created)
	s.saveCache(ctx)
	return created, nil
}

// Remove unfavorites a code. If the backend call fails the list is
// reloaded and the error returned.
func (s *FavoriteService) Remove(ctx context.Context, hcpcs string) error {
	hcpcs = strings.TrimSpace(hcpcs)
	if hcpcs == "" {
		return apperrors.NewValidationError("HCPCS code is required")
	}

	s.mu.Lock()
	s.generation.Add(1)
	for i := range s.favorites {
		if s.favorites[i].HCPCS == hcpcs {
			s.favorites = append(s.favorites[:i:i], s.favorites[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, hcpcs); err != nil {
		s.logger.Error().Err(err).Str("hcpcs", hcpcs).Msg("Failed to remove favorite, reloading")
		s.reload(ctx)
		return err
	}
	s.saveCache(ctx)
	return nil
}

// Toggle adds or removes hcpcs and reports whether it is now a favorite
func (s *FavoriteService) Toggle(ctx context.Context, hcpcs string) (bool, error) {
	if s.IsFavorited(strings.TrimSpace(hcpcs)) {
		return false, s.Remove(ctx, hcpcs)
	}
	if _, err := s.Add(ctx, hcpcs); err != nil {
		return false, err
	}
	return true, nil
}

// Move moves the favorite at index from to index to and syncs the order
func (s *FavoriteService) Move(ctx context.Context, from, to int) error {
	favorites := s.Favorites()
	if from < 0 || from >= len(favorites) || to < 0 || to >= len(favorites) {
		return apperrors.NewValidationError(fmt.Sprintf("move %d -> %d out of range for %d favorites", from, to, len(favorites)))
	}

	moved := favorites[from]
	favorites = append(favorites[:from], favorites[from+1:]...)
	favorites = append(favorites[:to], append([]entities.Favorite{moved}, favorites[to:]...)...)

	codes := make([]string, len(favorites))
	for i, fav := range favorites {
		codes[i] = fav.HCPCS
	}
	return s.Reorder(ctx, codes)
}

// Reorder puts the favorites in the order of codes and assigns sort orders
// by position. Favorites missing from codes keep their relative order after
// the listed ones; unknown codes are ignored.
func (s *FavoriteService) Reorder(ctx context.Context, codes []string) error {
	s.mu.Lock()
	s.generation.Add(1)
	byCode := make(map[string]entities.Favorite, len(s.favorites))
	for _, fav := range s.favorites {
		byCode[fav.HCPCS] = fav
	}
	ordered := make([]entities.Favorite, 0, len(s.favorites))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if fav, ok := byCode[code]; ok && !seen[code] {
			ordered = append(ordered, fav)
			seen[code] = true
		}
	}
	for _, fav := range s.favorites {
		if !seen[fav.HCPCS] {
			ordered = append(ordered, fav)
		}
	}
	orders := make([]entities.FavoriteOrder, len(ordered))
	for i := range ordered {
		ordered[i].SortOrder = i
		orders[i] = entities.FavoriteOrder{HCPCS: ordered[i].HCPCS, SortOrder: i}
	}
	s.favorites = ordered
	s.mu.Unlock()

	if err := s.repo.Reorder(ctx, orders); err != nil {
		s.logger.Error().Err(err).Msg("Failed to sync favorite order, reloading")
		s.reload(ctx)
		return err
	}
	s.saveCache(ctx)
	return nil
}

// ClearCache drops the cached favorites and the in-memory list
func (s *FavoriteService) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	s.favorites = nil
	s.mu.Unlock()
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, CacheKeyFavorites)
}

// replace swaps the favorite with id for fav, or removes it when fav is nil.
// A fav whose placeholder was dropped by a refresh is appended unless the
// refresh already returned its code.
func (s *FavoriteService) replace(id string, fav *entities.Favorite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)
	for i := range s.favorites {
		if s.favorites[i].ID != id {
			continue
		}
		if fav == nil {
			s.favorites = append(s.favorites[:i:i], s.favorites[i+1:]...)
		} else {
			s.favorites[i] = *fav
		}
		return
	}
	if fav == nil {
		return
	}
	for _, existing := range s.favorites {
		if existing.HCPCS == fav.HCPCS {
			return
		}
	}
	s.favorites = append(s.favorites, *fav)
}

func (s *FavoriteService) reload(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Reload of favorites failed")
	}
}

func (s *FavoriteService) saveCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, CacheKeyFavorites, s.Favorites()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache favorites")
	}
}
