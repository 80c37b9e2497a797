package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// DocRow represents a row in the documents table.
type DocRow struct {
	ID        string
	Path      string
	Title     string
	Type      models.DocType
	Author    string
	Year      int
	Status    models.Status
	Rating    int
	Tags      []string
	Themes    []string
	Checksum  string
	UpdatedAt time.Time
}

// LinkRow is one edge in the links table. Resolved is empty when the raw
// target matched no known document (a dangling link).
type LinkRow struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Resolved string `json:"resolved,omitempty"`
	Label    string `json:"label,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// GraphNode is one document node in the exported graph.
type GraphNode struct {
	ID    string         `json:"id"`
	Title string         `json:"title,omitempty"`
	Type  models.DocType `json:"type,omitempty"`
}

// SearchResult represents one full-text search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDocument inserts or replaces a document node, its tag rows, its
// FTS entry, and its outgoing links within one transaction. Re-adding the
// same id overwrites prior attributes, which is what re-indexing after an
// edit relies on.
func (db *DB) UpsertDocument(d DocRow, body string, links []models.LinkRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(d.Tags))
	themesJSON, _ := json.Marshal(nonNil(d.Themes))

	_, err = tx.Exec(`
		INSERT INTO documents (id, path, title, doc_type, author, year, status, rating, tags, themes, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			doc_type   = excluded.doc_type,
			author     = excluded.author,
			year       = excluded.year,
			status     = excluded.status,
			rating     = excluded.rating,
			tags       = excluded.tags,
			themes     = excluded.themes,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.ID, d.Path, d.Title, string(d.Type), d.Author, d.Year, string(d.Status), d.Rating,
		string(tagsJSON), string(themesJSON), d.Checksum, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.ID, d.Title, body, d.Tags); err != nil {
		return err
	}

	// Replace tag rows. Tags and themes share one lookup table; the field
	// column records which frontmatter array a row came from.
	if _, err := tx.Exec(`DELETE FROM doc_tags WHERE doc_id = ?`, d.ID); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if err := insertTags(tx, d.ID, d.Tags, "tags"); err != nil {
		return err
	}
	if err := insertTags(tx, d.ID, d.Themes, "themes"); err != nil {
		return err
	}

	// Replace outgoing links. New links start unresolved; the resolution
	// pass runs only after a full parse barrier.
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.ID); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO links (source, ord, target, label, kind) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for i, l := range links {
			if _, err := stmt.Exec(d.ID, i, l.Target, l.Label, l.Kind); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

func insertTags(tx *sql.Tx, docID string, tags []string, field string) error {
	for _, tag := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO doc_tags (doc_id, tag, field) VALUES (?, ?, ?)`,
			docID, tag, field); err != nil {
			return fmt.Errorf("index: insert tag: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes a document node, its tag rows, its FTS entry,
// and its outgoing links.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, id)
	_, _ = tx.Exec(`DELETE FROM doc_tags WHERE doc_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, id)

	return tx.Commit()
}

// GetDocument returns one document row by id.
func (db *DB) GetDocument(id string) (*DocRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, title, doc_type, author, year, status, rating, tags, themes, checksum, updated_at
		FROM documents WHERE id = ?`, id)
	d, err := scanDocRow(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocRow(r rowScanner) (*DocRow, error) {
	var d DocRow
	var docType, status, tags, themes string
	if err := r.Scan(&d.ID, &d.Path, &d.Title, &docType, &d.Author, &d.Year, &status,
		&d.Rating, &tags, &themes, &d.Checksum, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Type = models.DocType(docType)
	d.Status = models.Status(status)
	_ = json.Unmarshal([]byte(tags), &d.Tags)
	_ = json.Unmarshal([]byte(themes), &d.Themes)
	return &d, nil
}

var sortColumns = map[string]string{
	"":           "updated_at DESC",
	"updated_at": "updated_at DESC",
	"title":      "title ASC",
	"path":       "path ASC",
	"id":         "id ASC",
}

// ListDocuments returns paginated documents with an optional exact-match
// tag filter (tags or themes, case-sensitive).
func (db *DB) ListDocuments(limit, offset int, tag, sort string) ([]DocRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := sortColumns[sort]
	if !ok {
		order = sortColumns[""]
	}

	where := ""
	args := []any{}
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM doc_tags t WHERE t.doc_id = documents.id AND t.tag = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, path, title, doc_type, author, year, status, rating, tags, themes, checksum, updated_at
		FROM documents %s ORDER BY %s LIMIT ? OFFSET ?`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocRow
	for rows.Next() {
		d, err := scanDocRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the set of document ids with at least one resolved
// link targeting id. Empty result, not an error, when none exist.
func (db *DB) Backlinks(id string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE resolved = ? ORDER BY source`, id)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Outgoing returns a document's links in source order, dangling included.
func (db *DB) Outgoing(id string) ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, target, resolved, label, kind FROM links
		WHERE source = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("index: outgoing: %w", err)
	}
	defer rows.Close()
	return collectLinkRows(rows)
}

// Dangling returns every link whose target resolved to no known document.
func (db *DB) Dangling() ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, target, resolved, label, kind FROM links
		WHERE resolved IS NULL ORDER BY source, ord`)
	if err != nil {
		return nil, fmt.Errorf("index: dangling: %w", err)
	}
	defer rows.Close()
	return collectLinkRows(rows)
}

func collectLinkRows(rows *sql.Rows) ([]LinkRow, error) {
	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		var resolved sql.NullString
		if err := rows.Scan(&l.Source, &l.Target, &resolved, &l.Label, &l.Kind); err != nil {
			return nil, err
		}
		l.Resolved = resolved.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// TagIndex returns the ids of documents whose tags or themes contain the
// literal string. Case- and underscore-sensitive, no fuzzy matching.
func (db *DB) TagIndex(tag string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT doc_id FROM doc_tags WHERE tag = ? ORDER BY doc_id`, tag)
	if err != nil {
		return nil, fmt.Errorf("index: tag index: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AllTags returns every tag with its document count.
func (db *DB) AllTags() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT tag, count(DISTINCT doc_id) FROM doc_tags GROUP BY tag`)
	if err != nil {
		return nil, fmt.Errorf("index: all tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		out[tag] = n
	}
	return out, rows.Err()
}

// Graph returns all document nodes and all edges, dangling included.
func (db *DB) Graph() ([]GraphNode, []LinkRow, error) {
	nodeRows, err := db.conn.Query(`SELECT id, title, doc_type FROM documents ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		var docType string
		if err := nodeRows.Scan(&n.ID, &n.Title, &docType); err != nil {
			return nil, nil, err
		}
		n.Type = models.DocType(docType)
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := db.conn.Query(`SELECT source, target, resolved, label, kind FROM links ORDER BY source, ord`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer edgeRows.Close()
	edges, err := collectLinkRows(edgeRows)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// SetDiagnostic records or refreshes a diagnostic for a path.
func (db *DB) SetDiagnostic(kind, path, detail string) error {
	_, err := db.conn.Exec(`
		INSERT INTO diagnostics (kind, path, detail) VALUES (?, ?, ?)
		ON CONFLICT(kind, path) DO UPDATE SET detail = excluded.detail`, kind, path, detail)
	if err != nil {
		return fmt.Errorf("index: set diagnostic: %w", err)
	}
	return nil
}

// ClearDiagnostic removes one diagnostic kind for a path.
func (db *DB) ClearDiagnostic(kind, path string) error {
	_, err := db.conn.Exec(`DELETE FROM diagnostics WHERE kind = ? AND path = ?`, kind, path)
	return err
}

// ClearDiagnosticsKind removes all diagnostics of one kind.
func (db *DB) ClearDiagnosticsKind(kind string) error {
	_, err := db.conn.Exec(`DELETE FROM diagnostics WHERE kind = ?`, kind)
	return err
}

// Diagnostics returns all recorded diagnostics.
func (db *DB) Diagnostics() ([]models.Diagnostic, error) {
	rows, err := db.conn.Query(`SELECT kind, path, detail FROM diagnostics ORDER BY kind, path`)
	if err != nil {
		return nil, fmt.Errorf("index: diagnostics: %w", err)
	}
	defer rows.Close()

	var out []models.Diagnostic
	for rows.Next() {
		var d models.Diagnostic
		if err := rows.Scan(&d.Kind, &d.Path, &d.Detail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
