// Package history stores recorded coverage runs in a JSON file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
	"github.com/rulecov/rulecov/internal/pathutil"
)

// DefaultMaxEntries caps how many runs a history file keeps.
const DefaultMaxEntries = 100

// Opener builds a store for the history path resolved from flags and
// config at run time.
type Opener struct{}

func (Opener) Open(path string) application.HistoryStore {
	return &FileStore{Path: path}
}

// FileStore reads and appends history entries in one JSON file.
// Append takes an exclusive lock on a sibling .lock file so
// concurrent record runs, say parallel CI jobs sharing a workspace,
// cannot interleave their read-modify-write cycles.
type FileStore struct {
	Path       string
	MaxEntries int
}

// Load reads the history file. A missing file is an empty history.
func (s *FileStore) Load() (domain.History, error) {
	path, err := pathutil.ValidatePath(s.Path)
	if err != nil {
		return domain.History{}, fmt.Errorf("history path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.History{}, nil
		}
		return domain.History{}, err
	}

	var h domain.History
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.History{}, err
	}
	return h, nil
}

// Save writes the history file, creating parent directories as
// needed.
func (s *FileStore) Save(h domain.History) error {
	path, err := pathutil.ValidatePath(s.Path)
	if err != nil {
		return fmt.Errorf("history path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Append adds one entry under the file lock, trimming the oldest
// entries beyond the configured cap.
func (s *FileStore) Append(entry domain.HistoryEntry) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer lock.release()

	h, err := s.Load()
	if err != nil {
		return err
	}
	h.Entries = append(h.Entries, entry)

	max := s.MaxEntries
	if max == 0 {
		max = DefaultMaxEntries
	}
	if len(h.Entries) > max {
		h.Entries = h.Entries[len(h.Entries)-max:]
	}
	return s.Save(h)
}
