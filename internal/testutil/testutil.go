// Package testutil provides shared test helpers for setting up corpora
// and index databases.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/munin/internal/corpus"
	"github.com/halvard/munin/internal/index"
)

// TestDB creates an in-memory index database cleaned up with the test.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus creates a temporary corpus directory populated with files
// (keys are slash-relative paths) and returns a provider over it.
func TestCorpus(t *testing.T, files map[string]string) corpus.Provider {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := corpus.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// MustSync indexes the corpus and fails the test on error.
func MustSync(t *testing.T, db *index.DB, store corpus.Provider) *index.Stats {
	t.Helper()
	stats, err := index.Sync(context.Background(), db, store, 2, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return stats
}
