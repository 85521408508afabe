package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is an in-process CacheProvider. It does not survive restarts
// and is used when no persistent backend is configured and in tests.
type MemoryAdapter struct {
	mu    sync.RWMutex
	data  map[string]memoryEntry
	clock providers.Clock
}

// NewMemoryAdapter creates an empty in-memory cache
func NewMemoryAdapter(clock providers.Clock) *MemoryAdapter {
	if clock == nil {
		clock = providers.SystemClock
	}
	return &MemoryAdapter{
		data:  make(map[string]memoryEntry),
		clock: clock,
	}
}

// Get retrieves a value from cache
func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[key]
	if !ok || m.expired(entry) {
		return nil, providers.ErrCacheMiss
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a copy of value
func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// Delete removes a value from cache
func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// DeletePrefix removes every key starting with prefix
func (m *MemoryAdapter) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

// Exists checks if a key exists in cache
func (m *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[key]
	return ok && !m.expired(entry), nil
}

// Len returns the number of live entries
func (m *MemoryAdapter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, entry := range m.data {
		if !m.expired(entry) {
			n++
		}
	}
	return n
}

func (m *MemoryAdapter) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt)
}
