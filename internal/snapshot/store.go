// Package snapshot persists the last successfully resolved alert+geometry
// bundle, so a fresh visitor or a failed upstream call still gets a usable
// payload.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
)

// Store reads and writes the snapshot file. Save replaces the file
// atomically; Load never fails on a missing or corrupt file, it just
// reports no snapshot.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a snapshot store at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the last saved snapshot and whether one exists.
func (s *Store) Load() (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		s.logger.Warn("snapshot corrupt, treating as absent", "path", s.path, "error", err)
		return domain.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save persists snap, superseding any previous snapshot wholesale.
func (s *Store) Save(snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
