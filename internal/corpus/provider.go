// Package corpus defines the document source abstraction over a directory
// tree of Markdown files.
package corpus

import "time"

// FileInfo is lightweight metadata for one corpus file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the read-side interface over the corpus. Documents are
// authored out-of-band; nothing in the indexer mutates them.
type Provider interface {
	// List returns metadata for every Markdown file under dir (relative
	// to the corpus root), in deterministic traversal order.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Root returns the absolute corpus root directory.
	Root() string
}
