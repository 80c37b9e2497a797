package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halvard/munin/internal/corpus"
	"github.com/halvard/munin/internal/models"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the corpus root and processes file
// change events until ctx is cancelled. After every index mutation the
// link-resolution pass re-runs: a new file can turn dangling links into
// resolved backlinks, and a deletion does the reverse. cb (if non-nil) is
// invoked after each successful mutation.
//
// Directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that removes stale index
// entries and picks up files that arrived under a new name.
func Watch(ctx context.Context, db *DB, store corpus.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(ctx, db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					indexNewDir(db, store, root, absPath, logger, cb)
					continue
				}
			}

			if !corpus.IsMarkdown(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexFile(db, rel, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				reresolve(db, logger)
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, DocID(rel))
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(DocID(rel)); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				_ = db.ClearDiagnostic(models.DiagMalformedFrontmatter, rel)
				reresolve(db, logger)
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", DocID(rel))
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// path arrives as a separate Create event if it stays
				// within a watched dir. Delete the old entry now and
				// schedule a reconciliation pass for stragglers.
				if delErr := db.DeleteDocument(DocID(rel)); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					_ = db.ClearDiagnostic(models.DiagMalformedFrontmatter, rel)
					reresolve(db, logger)
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", DocID(rel))
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reresolve(db *DB, logger *slog.Logger) {
	if _, _, err := db.ResolveAll(); err != nil {
		logger.Warn("watcher: resolve failed", slog.String("error", err.Error()))
	}
}

// reconcileAfterRename runs a full sync pass: it reuses the checksum
// comparison, stale removal, and resolution barrier from Sync.
func reconcileAfterRename(ctx context.Context, db *DB, store corpus.Provider, logger *slog.Logger, cb EventCallback) {
	before, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}
	if _, err := Sync(ctx, db, store, 1, logger); err != nil {
		logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	after, err := db.AllChecksums()
	if err != nil {
		return
	}
	if cb == nil {
		return
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			cb("deleted", DocID(p))
		}
	}
	for p, cs := range after {
		if prev, ok := before[p]; !ok {
			cb("created", DocID(p))
		} else if prev != cs {
			cb("updated", DocID(p))
		}
	}
}

// indexNewDir indexes Markdown files found in a newly created directory.
func indexNewDir(db *DB, store corpus.Provider, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	indexed := false
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !corpus.IsMarkdown(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := indexFile(db, rel, data); idxErr == nil {
			indexed = true
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", DocID(rel))
			}
		}
		return nil
	})
	if indexed {
		reresolve(db, logger)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping dot-directories the same way the corpus walk does.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
