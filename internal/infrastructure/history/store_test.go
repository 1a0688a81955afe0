package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rulecov/rulecov/internal/domain"
)

func TestFileStoreLoad(t *testing.T) {
	t.Run("missing file is empty history", func(t *testing.T) {
		store := FileStore{Path: filepath.Join(t.TempDir(), "missing.json")}
		h, err := store.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(h.Entries) != 0 {
			t.Fatalf("expected empty history, got %d entries", len(h.Entries))
		}
	})

	t.Run("loads existing history", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		content := `{"entries":[{"timestamp":"2026-01-15T10:00:00Z","runId":"r1","overall":75.5,"files":{}}]}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		h, err := (&FileStore{Path: path}).Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(h.Entries) != 1 || h.Entries[0].Overall != 75.5 || h.Entries[0].RunID != "r1" {
			t.Fatalf("unexpected history: %+v", h.Entries)
		}
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := (&FileStore{Path: path}).Load(); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("empty path is an error", func(t *testing.T) {
		if _, err := (&FileStore{}).Load(); err == nil {
			t.Fatal("expected path validation error")
		}
	})
}

func TestFileStoreSave(t *testing.T) {
	t.Run("round trips entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		store := &FileStore{Path: path}

		h := domain.History{Entries: []domain.HistoryEntry{{
			Timestamp: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
			RunID:     "r1",
			Overall:   80,
			Files: map[string]domain.FileEntry{
				"rules/approval.table.yaml": {Covered: 4, Total: 5, Percent: 80},
			},
		}}}
		if err := store.Save(h); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if len(loaded.Entries) != 1 || loaded.Entries[0].Overall != 80 {
			t.Fatalf("unexpected reload: %+v", loaded.Entries)
		}
		fe := loaded.Entries[0].Files["rules/approval.table.yaml"]
		if fe.Covered != 4 || fe.Total != 5 {
			t.Fatalf("unexpected file entry: %+v", fe)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".rulecov", "history.json")
		store := &FileStore{Path: path}
		if err := store.Save(domain.History{Entries: []domain.HistoryEntry{{Overall: 70}}}); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected file: %v", err)
		}
	})
}

func TestFileStoreAppend(t *testing.T) {
	t.Run("appends in order", func(t *testing.T) {
		store := &FileStore{Path: filepath.Join(t.TempDir(), "history.json")}

		if err := store.Append(domain.HistoryEntry{RunID: "a", Overall: 70}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := store.Append(domain.HistoryEntry{RunID: "b", Overall: 75}); err != nil {
			t.Fatalf("append: %v", err)
		}

		h, err := store.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(h.Entries) != 2 || h.Entries[0].RunID != "a" || h.Entries[1].RunID != "b" {
			t.Fatalf("unexpected entries: %+v", h.Entries)
		}
	})

	t.Run("trims oldest beyond cap", func(t *testing.T) {
		store := &FileStore{Path: filepath.Join(t.TempDir(), "history.json"), MaxEntries: 3}

		for i := 0; i < 5; i++ {
			if err := store.Append(domain.HistoryEntry{Overall: float64(70 + i)}); err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
		}

		h, err := store.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(h.Entries) != 3 {
			t.Fatalf("expected 3 entries after trim, got %d", len(h.Entries))
		}
		if h.Entries[0].Overall != 72 {
			t.Fatalf("expected oldest surviving entry 72, got %v", h.Entries[0].Overall)
		}
	})
}

func TestOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := Opener{}.Open(path)

	if err := store.Append(domain.HistoryEntry{RunID: "r1", Overall: 50}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(h.Entries) != 1 || h.Entries[0].RunID != "r1" {
		t.Fatalf("unexpected history: %+v", h.Entries)
	}
}
