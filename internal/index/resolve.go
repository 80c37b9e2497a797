package index

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// DocID derives the stable logical id of a document from its corpus path:
// slash-separated, extension stripped. Links reference documents by id.
func DocID(filePath string) string {
	p := strings.TrimPrefix(filePath, "./")
	for _, ext := range []string{".md", ".markdown"} {
		if strings.HasSuffix(p, ext) {
			return p[:len(p)-len(ext)]
		}
	}
	return p
}

// NormalizeRef canonicalizes a raw wiki-link reference before resolution.
// The corpus mixes path forms, so normalization strips the Markdown
// extension, a leading "./", surrounding slashes, and a trailing section
// anchor. Case is never folded: ids and tags are case-sensitive.
func NormalizeRef(ref string) string {
	r := strings.TrimSpace(ref)
	if i := strings.IndexByte(r, '#'); i >= 0 {
		r = strings.TrimSpace(r[:i])
	}
	r = strings.TrimPrefix(r, "./")
	r = strings.Trim(r, "/")
	if r == "" {
		return ""
	}
	r = path.Clean(r)
	for _, ext := range []string{".md", ".markdown"} {
		if strings.HasSuffix(r, ext) {
			return r[:len(r)-len(ext)]
		}
	}
	return r
}

// resolveRef maps a normalized reference to a document id, or "" when it
// dangles. Exact id match wins; otherwise a match on a trailing run of
// path segments is accepted (a link "sources/books/foo" reaches a
// document stored at "knowledge/philosophy/sources/books/foo.md"). With
// several suffix candidates the shortest id wins, ties broken
// lexicographically, so resolution is deterministic.
func resolveRef(norm string, ids map[string]struct{}, sorted []string) string {
	if norm == "" {
		return ""
	}
	if _, ok := ids[norm]; ok {
		return norm
	}
	suffix := "/" + norm
	var candidates []string
	for _, id := range sorted {
		if strings.HasSuffix(id, suffix) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// ResolveAll recomputes the resolved column for every link against the
// current document set. Unresolved links stay dangling rows, never an
// error: the corpus routinely references documents outside the visible
// set. Returns the resolved and dangling edge counts.
func (db *DB) ResolveAll() (resolved, dangling int, err error) {
	idRows, err := db.conn.Query(`SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return 0, 0, fmt.Errorf("index: resolve ids: %w", err)
	}
	ids := make(map[string]struct{})
	var sorted []string
	for idRows.Next() {
		var id string
		if err := idRows.Scan(&id); err != nil {
			idRows.Close()
			return 0, 0, err
		}
		ids[id] = struct{}{}
		sorted = append(sorted, id)
	}
	idRows.Close()
	if err := idRows.Err(); err != nil {
		return 0, 0, err
	}

	targetRows, err := db.conn.Query(`SELECT DISTINCT target FROM links`)
	if err != nil {
		return 0, 0, fmt.Errorf("index: resolve targets: %w", err)
	}
	resolution := make(map[string]string)
	for targetRows.Next() {
		var target string
		if err := targetRows.Scan(&target); err != nil {
			targetRows.Close()
			return 0, 0, err
		}
		resolution[target] = resolveRef(NormalizeRef(target), ids, sorted)
	}
	targetRows.Close()
	if err := targetRows.Err(); err != nil {
		return 0, 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("index: begin resolve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`UPDATE links SET resolved = NULL`); err != nil {
		return 0, 0, fmt.Errorf("index: reset resolution: %w", err)
	}
	stmt, err := tx.Prepare(`UPDATE links SET resolved = ? WHERE target = ?`)
	if err != nil {
		return 0, 0, fmt.Errorf("index: prepare resolve: %w", err)
	}
	defer stmt.Close()
	for target, id := range resolution {
		if id == "" {
			continue
		}
		if _, err := stmt.Exec(id, target); err != nil {
			return 0, 0, fmt.Errorf("index: apply resolution: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}

	err = db.conn.QueryRow(`
		SELECT count(*) FILTER (WHERE resolved IS NOT NULL),
		       count(*) FILTER (WHERE resolved IS NULL)
		FROM links`).Scan(&resolved, &dangling)
	if err != nil {
		return 0, 0, fmt.Errorf("index: count resolution: %w", err)
	}
	return resolved, dangling, nil
}
