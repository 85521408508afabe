package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
)

const fileSuffix = ".cache"

// fileRecord is the on-disk form of one entry
type fileRecord struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Value     []byte     `json:"value"`
}

// FileAdapter persists each key as a file under a directory so cached data
// survives process restarts. Files are written owner-only.
type FileAdapter struct {
	dir   string
	clock providers.Clock
}

// NewFileAdapter creates the directory if needed
func NewFileAdapter(dir string, clock providers.Clock) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if clock == nil {
		clock = providers.SystemClock
	}
	return &FileAdapter{dir: dir, clock: clock}, nil
}

func (a *FileAdapter) path(key string) string {
	return filepath.Join(a.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileSuffix)
}

func keyFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileSuffix))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Get retrieves a value from cache
func (a *FileAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Unreadable envelope; surface the raw bytes so the caller's decoder
		// reports corruption and deletes the key.
		return data, nil
	}
	if rec.ExpiresAt != nil && !a.clock.Now().Before(*rec.ExpiresAt) {
		_ = os.Remove(a.path(key))
		return nil, providers.ErrCacheMiss
	}
	return rec.Value, nil
}

// Set writes the value atomically via a temp file and rename
func (a *FileAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := fileRecord{Value: value}
	if ttl > 0 {
		exp := a.clock.Now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	if err := os.Rename(tmpName, a.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *FileAdapter) Delete(ctx context.Context, key string) error {
	if err := os.Remove(a.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix
func (a *FileAdapter) DeletePrefix(ctx context.Context, prefix string) error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := keyFromName(entry.Name())
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *FileAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	if errors.Is(err, providers.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
