package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

// Well-known cache keys
const (
	CacheKeyVisits    = "visits"
	CacheKeyFavorites = "favorites"
)

// VisitsFreshnessWindow is how long cached visits satisfy a fresh read
const VisitsFreshnessWindow = 5 * time.Minute

// cacheEnvelope is the stored form of every entry
type cacheEnvelope struct {
	Version   int             `json:"version"`
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

// CacheStore persists JSON-serializable values with a schema version and a
// write timestamp. Entries that fail to decode or carry another schema
// version are deleted and reported as absent.
type CacheStore struct {
	provider  providers.CacheProvider
	namespace string
	version   int
	clock     providers.Clock
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// CacheStoreOption configures a CacheStore
type CacheStoreOption func(*CacheStore)

// WithCacheClock overrides the wall clock
func WithCacheClock(clock providers.Clock) CacheStoreOption {
	return func(s *CacheStore) { s.clock = clock }
}

// WithCacheMetrics records hit/miss/corrupt counters
func WithCacheMetrics(metrics *observability.Metrics) CacheStoreOption {
	return func(s *CacheStore) { s.metrics = metrics }
}

// WithCacheLogger overrides the global logger
func WithCacheLogger(logger zerolog.Logger) CacheStoreOption {
	return func(s *CacheStore) { s.logger = logger }
}

// NewCacheStore creates a cache store over provider
func NewCacheStore(provider providers.CacheProvider, namespace string, version int, opts ...CacheStoreOption) *CacheStore {
	s := &CacheStore{
		provider:  provider,
		namespace: namespace,
		version:   version,
		clock:     providers.SystemClock,
		logger:    log.Logger.With().Str("component", "cache_store").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CacheStore) storageKey(key string) string {
	return s.namespace + ":" + key
}

// Save serializes value and stores it under key
func (s *CacheStore) Save(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to encode cache entry %q", key), err)
	}

	data, err := json.Marshal(cacheEnvelope{
		Version:   s.version,
		WrittenAt: s.clock.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to encode cache entry %q", key), err)
	}

	if err := s.provider.Set(ctx, s.storageKey(key), data, 0); err != nil {
		return fmt.Errorf("failed to save cache entry %q: %w", key, err)
	}
	return nil
}

// Load decodes the entry under key into out, which must be a non-nil
// pointer. It reports false when the entry is missing, corrupt or written by
// another schema version; out is left unchanged in that case.
func (s *CacheStore) Load(ctx context.Context, key string, out any) (bool, error) {
	_, ok, err := s.read(ctx, key, out)
	return ok, err
}

// LoadFresh is Load plus a freshness flag: fresh is true only when the entry
// was written within maxAge. A stale entry is still decoded into out so it
// can be shown while a refresh runs.
func (s *CacheStore) LoadFresh(ctx context.Context, key string, out any, maxAge time.Duration) (found, fresh bool, err error) {
	env, ok, err := s.read(ctx, key, out)
	if err != nil || !ok {
		return false, false, err
	}
	age := s.clock.Now().Sub(env.WrittenAt)
	return true, age <= maxAge, nil
}

// Delete removes the entry under key
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	if err := s.provider.Delete(ctx, s.storageKey(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

// DeleteAll removes every entry in the store's namespace
func (s *CacheStore) DeleteAll(ctx context.Context) error {
	if err := s.provider.DeletePrefix(ctx, s.namespace+":"); err != nil {
		return fmt.Errorf("failed to clear cache namespace %q: %w", s.namespace, err)
	}
	return nil
}

func (s *CacheStore) read(ctx context.Context, key string, out any) (cacheEnvelope, bool, error) {
	var env cacheEnvelope

	data, err := s.provider.Get(ctx, s.storageKey(key))
	if errors.Is(err, providers.ErrCacheMiss) {
		observability.RecordCacheMiss(ctx, s.metrics, key)
		return env, false, nil
	}
	if err != nil {
		return env, false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	if err := json.Unmarshal(data, &env); err != nil {
		s.discard(ctx, key, "envelope", err)
		return env, false, nil
	}
	if env.Version != s.version {
		s.logger.Info().
			Str("key", key).
			Int("stored_version", env.Version).
			Int("current_version", s.version).
			Msg("Dropping cache entry written by another schema version")
		observability.RecordCacheMiss(ctx, s.metrics, key)
		s.remove(ctx, key)
		return env, false, nil
	}
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return env, false, &json.InvalidUnmarshalError{Type: reflect.TypeOf(out)}
	}
	// Decode into a fresh value so out is untouched when the payload is bad
	decoded := reflect.New(target.Type().Elem())
	if err := json.Unmarshal(env.Payload, decoded.Interface()); err != nil {
		s.discard(ctx, key, "payload", err)
		return env, false, nil
	}
	target.Elem().Set(decoded.Elem())

	observability.RecordCacheHit(ctx, s.metrics, key)
	return env, true, nil
}

func (s *CacheStore) discard(ctx context.Context, key, reason string, cause error) {
	s.logger.Warn().
		Err(apperrors.NewCacheCorruptError(key, cause)).
		Str("key", key).
		Str("reason", reason).
		Msg("Discarding undecodable cache entry")
	observability.RecordCacheCorrupt(ctx, s.metrics, key, reason)
	s.remove(ctx, key)
}

func (s *CacheStore) remove(ctx context.Context, key string) {
	if err := s.provider.Delete(ctx, s.storageKey(key)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete cache entry")
	}
}
