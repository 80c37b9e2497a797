// Package index provides the SQLite-backed knowledge graph: document
// nodes, typed wiki-link edges with dangling tracking, tag lookup, and
// optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

var memSeq atomic.Int64

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	doc_type   TEXT NOT NULL DEFAULT 'other',
	author     TEXT NOT NULL DEFAULT '',
	year       INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT '',
	rating     INTEGER NOT NULL DEFAULT 0,
	tags       TEXT NOT NULL DEFAULT '[]',
	themes     TEXT NOT NULL DEFAULT '[]',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source   TEXT NOT NULL,
	ord      INTEGER NOT NULL DEFAULT 0,
	target   TEXT NOT NULL,
	resolved TEXT,
	label    TEXT NOT NULL DEFAULT '',
	kind     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source, ord)
);

CREATE INDEX IF NOT EXISTS idx_links_target   ON links(target);
CREATE INDEX IF NOT EXISTS idx_links_resolved ON links(resolved);

CREATE TABLE IF NOT EXISTS doc_tags (
	doc_id TEXT NOT NULL,
	tag    TEXT NOT NULL,
	field  TEXT NOT NULL DEFAULT 'tags',
	UNIQUE(doc_id, tag, field)
);

CREATE INDEX IF NOT EXISTS idx_doc_tags_tag ON doc_tags(tag);

CREATE TABLE IF NOT EXISTS diagnostics (
	kind   TEXT NOT NULL,
	path   TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	UNIQUE(kind, path)
);
`

// DB wraps a sql.DB with graph-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens the index database and applies the schema. An empty or
// ":memory:" dsn yields an in-memory index, the default: the graph is a
// derived structure rebuilt from source text, not persisted state. A file
// dsn is used by serve mode where the watcher keeps it current.
func Open(dsn string) (*DB, error) {
	inMemory := dsn == "" || dsn == ":memory:"
	if inMemory {
		// A unique named memory database with cache=shared, so every
		// pooled connection of this DB sees the same data while separate
		// Open calls stay isolated.
		dsn = fmt.Sprintf("file:munin-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	} else {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if inMemory {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
