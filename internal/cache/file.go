package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
)

// FileStore keeps the geometry map in memory and persists it as a single
// JSON file of code → geometry|null. PersistAll replaces the file
// atomically, so readers never observe a half-written map.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries domain.GeometryMap
}

// NewFileStore creates a disk-backed store. Cold start is an empty map;
// call LoadAll to hydrate from a previous session.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:    path,
		logger:  logger,
		entries: domain.GeometryMap{},
	}
}

func (s *FileStore) Get(_ context.Context, code string) (*geojson.Geometry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.entries[code]
	return g, ok
}

func (s *FileStore) GetMany(_ context.Context, codes []string) domain.GeometryMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.GeometryMap, len(codes))
	for _, code := range codes {
		if g, ok := s.entries[code]; ok {
			out[code] = g
		}
	}
	return out
}

func (s *FileStore) Put(code string, g *geojson.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[code] = g
}

// PersistAll writes the whole map and atomically replaces the cache file.
func (s *FileStore) PersistAll(_ context.Context) error {
	s.mu.RLock()
	b, err := json.Marshal(s.entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal geometry cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write geometry cache: %w", err)
	}
	return nil
}

// LoadAll hydrates the in-memory map from disk and returns a copy. Missing
// or corrupt files start the cache empty rather than failing.
func (s *FileStore) LoadAll(_ context.Context) (domain.GeometryMap, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("geometry cache unreadable, starting empty", "path", s.path, "error", err)
		}
		return domain.GeometryMap{}, nil
	}

	var entries domain.GeometryMap
	if err := json.Unmarshal(b, &entries); err != nil {
		s.logger.Warn("geometry cache corrupt, starting empty", "path", s.path, "error", err)
		return domain.GeometryMap{}, nil
	}
	if entries == nil {
		entries = domain.GeometryMap{}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	out := make(domain.GeometryMap, len(entries))
	for code, g := range entries {
		out[code] = g
	}
	return out, nil
}
