package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

// catalogFields is the column count of a reference catalog row:
// code, description, status code, work RVU.
const catalogFields = 4

// catalogEntry is a loaded code with lower-cased search keys
type catalogEntry struct {
	code      entities.ProcedureCode
	codeLower string
	descLower string
}

// CatalogService owns the bundled HCPCS reference catalog. It loads once,
// answers lookups and searches, and enriches visits with catalog RVUs.
type CatalogService struct {
	fsys    fs.FS
	name    string
	metrics *observability.Metrics
	logger  zerolog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	lastErr error
	entries []catalogEntry
	index   map[string]entities.ProcedureCode
}

// CatalogOption configures a CatalogService
type CatalogOption func(*CatalogService)

// WithCatalogMetrics records load duration and row counts
func WithCatalogMetrics(metrics *observability.Metrics) CatalogOption {
	return func(s *CatalogService) { s.metrics = metrics }
}

// WithCatalogLogger overrides the global logger
func WithCatalogLogger(logger zerolog.Logger) CatalogOption {
	return func(s *CatalogService) { s.logger = logger }
}

// NewCatalogService creates a catalog that reads name from fsys
func NewCatalogService(fsys fs.FS, name string, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{
		fsys:   fsys,
		name:   name,
		logger: log.Logger.With().Str("component", "catalog").Logger(),
		index:  map[string]entities.ProcedureCode{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCatalogServiceFromFile creates a catalog that reads a CSV file on disk
func NewCatalogServiceFromFile(path string, opts ...CatalogOption) *CatalogService {
	return NewCatalogService(os.DirFS(filepath.Dir(path)), filepath.Base(path), opts...)
}

// Load reads and indexes the catalog. After a successful load further calls
// return immediately; concurrent callers share one in-flight load and a
// failed load is retried by the next call.
func (s *CatalogService) Load(ctx context.Context) error {
	if s.IsLoaded() {
		return nil
	}

	_, err, _ := s.group.Do(s.name, func() (interface{}, error) {
		if s.IsLoaded() {
			return nil, nil
		}
		return nil, s.load(ctx)
	})
	return err
}

func (s *CatalogService) load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "catalog.load")
	defer span.End()
	start := time.Now()

	f, err := s.fsys.Open(s.name)
	if err != nil {
		loadErr := apperrors.NewNotFoundError(fmt.Sprintf("reference catalog %q unavailable", s.name), err)
		observability.RecordError(span, loadErr)
		s.setFailed(loadErr)
		s.logger.Error().Err(err).Str("resource", s.name).Msg("Failed to open reference catalog")
		return loadErr
	}
	defer f.Close()

	codes, skipped, err := s.parse(f)
	if err != nil {
		loadErr := apperrors.NewNotFoundError(fmt.Sprintf("reference catalog %q unreadable", s.name), err)
		observability.RecordError(span, loadErr)
		s.setFailed(loadErr)
		s.logger.Error().Err(err).Str("resource", s.name).Msg("Failed to read reference catalog")
		return loadErr
	}

	entries := make([]catalogEntry, 0, len(codes))
	index := make(map[string]entities.ProcedureCode, len(codes))
	for _, code := range codes {
		entries = append(entries, catalogEntry{
			code:      code,
			codeLower: strings.ToLower(code.Code),
			descLower: strings.ToLower(code.Description),
		})
		key := normalizeCode(code.Code)
		if _, exists := index[key]; !exists {
			index[key] = code
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.loaded = true
	s.lastErr = nil
	s.mu.Unlock()

	duration := time.Since(start)
	observability.SetSpanAttributes(span,
		attribute.Int("catalog.codes", len(entries)),
		attribute.Int("catalog.skipped_rows", skipped),
	)
	observability.RecordCatalogLoad(ctx, s.metrics, duration, len(entries), skipped)
	s.logger.Info().
		Int("codes", len(entries)).
		Int("unique_codes", len(index)).
		Int("skipped_rows", skipped).
		Dur("duration", duration).
		Msg("Reference catalog loaded")
	return nil
}

func (s *CatalogService) setFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// parse reads catalog rows in source order. Malformed rows are skipped and
// counted; only I/O failures are returned. Rows have no length limit.
func (s *CatalogService) parse(r io.Reader) ([]entities.ProcedureCode, int, error) {
	reader := bufio.NewReader(r)

	var codes []entities.ProcedureCode
	skipped := 0
	line := -1
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, skipped, err
		}
		if raw == "" && err == io.EOF {
			break
		}

		line++
		text := strings.TrimSpace(raw)
		if line > 0 && text != "" {
			code, parseErr := parseCatalogRow(text)
			if parseErr != nil {
				skipped++
				s.logger.Debug().Err(parseErr).Int("line", line+1).Msg("Skipping catalog row")
			} else {
				codes = append(codes, code)
			}
		}

		if err == io.EOF {
			break
		}
	}
	return codes, skipped, nil
}

func parseCatalogRow(text string) (entities.ProcedureCode, error) {
	fields := splitQuoted(text)
	if len(fields) < catalogFields {
		return entities.ProcedureCode{}, apperrors.NewParseError(
			fmt.Sprintf("expected %d fields, got %d", catalogFields, len(fields)), nil)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rvu, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return entities.ProcedureCode{}, apperrors.NewParseError(fmt.Sprintf("invalid work RVU %q", fields[3]), err)
	}
	if rvu < 0 || math.IsNaN(rvu) || math.IsInf(rvu, 0) {
		return entities.ProcedureCode{}, apperrors.NewParseError(fmt.Sprintf("invalid work RVU %q", fields[3]), nil)
	}

	return entities.ProcedureCode{
		Code:        fields[0],
		Description: fields[1],
		StatusCode:  fields[2],
		WorkRVU:     rvu,
	}, nil
}

// splitQuoted splits a comma-separated line. A double quote toggles quoted
// mode, in which commas do not split; quote characters are dropped and
// doubled quotes are not unescaped.
func splitQuoted(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, field.String())
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsLoaded reports whether a load has succeeded
func (s *CatalogService) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError returns the error of the most recent failed load, or nil
func (s *CatalogService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Lookup returns the work RVU of code, case-insensitively
func (s *CatalogService) Lookup(code string) (float64, bool) {
	entry, ok := s.Get(code)
	return entry.WorkRVU, ok
}

// Get returns the catalog entry for code, case-insensitively
func (s *CatalogService) Get(code string) (entities.ProcedureCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.index[normalizeCode(code)]
	return entry, ok
}

// Codes returns every loaded row in source order, duplicates included
func (s *CatalogService) Codes() []entities.ProcedureCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]entities.ProcedureCode, len(s.entries))
	for i, e := range s.entries {
		codes[i] = e.code
	}
	return codes
}

// Len returns the number of loaded rows
func (s *CatalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
