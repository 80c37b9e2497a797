package index

import "github.com/halvard/munin/internal/models"

// GraphIndex defines the interface for knowledge-graph queries. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type GraphIndex interface {
	UpsertDocument(d DocRow, body string, links []models.LinkRef) error
	DeleteDocument(id string) error
	GetDocument(id string) (*DocRow, error)
	ListDocuments(limit, offset int, tag, sort string) ([]DocRow, int, error)
	AllChecksums() (map[string]string, error)
	ResolveAll() (resolved, dangling int, err error)
	Backlinks(id string) ([]string, error)
	Outgoing(id string) ([]LinkRow, error)
	Dangling() ([]LinkRow, error)
	TagIndex(tag string) ([]string, error)
	AllTags() (map[string]int, error)
	Graph() ([]GraphNode, []LinkRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Diagnostics() ([]models.Diagnostic, error)
	Close() error
}

// Verify *DB satisfies GraphIndex at compile time.
var _ GraphIndex = (*DB)(nil)
