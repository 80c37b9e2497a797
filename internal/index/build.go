package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/halvard/munin/internal/corpus"
	"github.com/halvard/munin/internal/models"
	"github.com/halvard/munin/internal/parser"
)

// Stats summarizes one indexing pass.
type Stats struct {
	Scanned     int                 `json:"scanned"`
	Indexed     int                 `json:"indexed"`
	Removed     int                 `json:"removed"`
	Resolved    int                 `json:"resolved"`
	Dangling    int                 `json:"dangling"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

type parseJob struct {
	res  *parser.Result
	data []byte
	skip bool
}

// Sync brings the index up to date with the corpus:
//
//   - unchanged files (by checksum) are skipped
//   - new and changed files are parsed in parallel, each parse independent
//   - parsed documents are upserted by a single writer in traversal order
//   - index entries whose files left the disk are removed
//   - the link-resolution pass runs once, after every parse has returned
//
// Per-file failures are isolated: they log a warning and the rest of the
// corpus indexes normally. On a fresh database this is a full build.
func Sync(ctx context.Context, db *DB, store corpus.Provider, workers int, logger *slog.Logger) (*Stats, error) {
	files, err := store.List("")
	if err != nil {
		return nil, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Files that collide on a document id are never checksum-skipped. The
	// stored row carries only the winning path's checksum, so skipping the
	// winner while re-parsing a loser would flip the row on every sync.
	contested := make(map[string]bool, len(files))
	for _, f := range files {
		id := DocID(f.Path)
		if _, ok := contested[id]; ok {
			contested[id] = true
			continue
		}
		contested[id] = false
	}

	// Parse phase. Workers write disjoint slots, so the slice needs no
	// locking; cancellation discards everything.
	jobs := make([]parseJob, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if known[f.Path] == f.Checksum && !contested[DocID(f.Path)] {
				jobs[i].skip = true
				return nil
			}
			data, err := store.Read(f.Path)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				jobs[i].skip = true
				return nil
			}
			jobs[i].data = data
			jobs[i].res = parser.Parse(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Build phase: single writer, deterministic traversal order, so the
	// last file wins a duplicate-id collision reproducibly.
	stats := &Stats{Scanned: len(files)}
	if err := db.ClearDiagnosticsKind(models.DiagDuplicatePath); err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(files))
	disk := make(map[string]struct{}, len(files))
	for i, f := range files {
		disk[f.Path] = struct{}{}

		id := DocID(f.Path)
		if prev, dup := seen[id]; dup {
			detail := fmt.Sprintf("%s and %s map to the same document id %q; last one wins", prev, f.Path, id)
			logger.Warn("sync: duplicate document id", slog.String("path", f.Path), slog.String("detail", detail))
			if err := db.SetDiagnostic(models.DiagDuplicatePath, f.Path, detail); err != nil {
				return nil, err
			}
		}
		seen[id] = f.Path

		if jobs[i].skip {
			continue
		}
		if err := upsertParsed(db, id, f.Path, jobs[i].data, jobs[i].res); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", f.Path))
	}

	// Remove stale entries. A departed path only takes its row along when
	// no surviving file claims the same id.
	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if _, claimed := seen[DocID(p)]; claimed {
			continue
		}
		if err := db.DeleteDocument(DocID(p)); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		_ = db.ClearDiagnostic(models.DiagMalformedFrontmatter, p)
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	stats.Resolved, stats.Dangling, err = db.ResolveAll()
	if err != nil {
		return nil, err
	}
	stats.Diagnostics, err = db.Diagnostics()
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// indexFile parses data and upserts it; used by the watcher for single
// file events. The caller is responsible for re-running resolution.
func indexFile(db *DB, path string, data []byte) error {
	return upsertParsed(db, DocID(path), path, data, parser.Parse(data))
}

func upsertParsed(db *DB, id, path string, data []byte, res *parser.Result) error {
	row := DocRow{
		ID:        id,
		Path:      path,
		Title:     res.Title,
		Type:      res.Meta.Type,
		Author:    res.Meta.Author,
		Year:      res.Meta.Year,
		Status:    res.Meta.Status,
		Rating:    res.Meta.Rating,
		Tags:      res.Meta.Tags,
		Themes:    res.Meta.Themes,
		Checksum:  corpus.Checksum(data),
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, res.Body, res.Links); err != nil {
		return err
	}
	if res.Malformed {
		return db.SetDiagnostic(models.DiagMalformedFrontmatter, path, "frontmatter block is not terminated or not valid YAML")
	}
	return db.ClearDiagnostic(models.DiagMalformedFrontmatter, path)
}
