// Package graphsvc coordinates corpus and index operations for the API,
// the MCP server, and the CLI query commands.
package graphsvc

import (
	"context"
	"time"

	"github.com/halvard/munin/internal/corpus"
	"github.com/halvard/munin/internal/index"
	"github.com/halvard/munin/internal/models"
	"github.com/halvard/munin/internal/parser"
)

// DocumentDetail is the full representation of one document.
type DocumentDetail struct {
	ID          string          `json:"id"`
	Path        string          `json:"path"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Checksum    string          `json:"checksum"`
	Meta        models.Metadata `json:"meta"`
	Frontmatter map[string]any  `json:"frontmatter,omitempty"`
	Outgoing    []index.LinkRow `json:"outgoing"`
	Backlinks   []string        `json:"backlinks"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID        string         `json:"id"`
	Path      string         `json:"path"`
	Title     string         `json:"title"`
	Type      models.DocType `json:"type,omitempty"`
	Author    string         `json:"author,omitempty"`
	Status    models.Status  `json:"status,omitempty"`
	Rating    int            `json:"rating,omitempty"`
	Tags      []string       `json:"tags"`
	Themes    []string       `json:"themes"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Report is the corpus validation result.
type Report struct {
	Documents   int                 `json:"documents"`
	Dangling    []index.LinkRow     `json:"dangling"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	Clean       bool                `json:"clean"`
}

// Service exposes read queries over the corpus and its graph index.
type Service struct {
	store corpus.Provider
	db    *index.DB
}

// NewService creates a new graph service.
func NewService(store corpus.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetDocument returns one document with its content, resolved outgoing
// links, and backlinks. ref may be a document id or a corpus path.
func (s *Service) GetDocument(_ context.Context, ref string) (*DocumentDetail, error) {
	id := index.DocID(ref)
	row, err := s.db.GetDocument(id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(data)

	out, err := s.db.Outgoing(id)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		ID:          id,
		Path:        row.Path,
		Title:       row.Title,
		Content:     string(data),
		Checksum:    row.Checksum,
		Meta:        res.Meta,
		Frontmatter: res.Frontmatter,
		Outgoing:    nonNilSlice(out),
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// ListDocuments returns paginated documents with an optional tag filter.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, tag, sort string) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			ID:        r.ID,
			Path:      r.Path,
			Title:     r.Title,
			Type:      r.Type,
			Author:    r.Author,
			Status:    r.Status,
			Rating:    r.Rating,
			Tags:      nonNilSlice(r.Tags),
			Themes:    nonNilSlice(r.Themes),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Backlinks returns all document ids with a resolved link to ref.
func (s *Service) Backlinks(_ context.Context, ref string) ([]string, error) {
	return s.db.Backlinks(index.DocID(ref))
}

// TagIndex returns the ids of documents carrying the literal tag or theme.
func (s *Service) TagIndex(_ context.Context, tag string) ([]string, error) {
	return s.db.TagIndex(tag)
}

// Tags returns every tag with its document count.
func (s *Service) Tags(_ context.Context) (map[string]int, error) {
	return s.db.AllTags()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// GraphEdge is one edge in the exported graph. Group carries the
// normalized relation family for a typed edge so front ends can color
// "unterstützt" and "supports" the same way.
type GraphEdge struct {
	index.LinkRow
	Group string `json:"group,omitempty"`
}

// Graph returns all nodes and edges, dangling edges included.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []GraphEdge, error) {
	nodes, links, err := s.db.Graph()
	if err != nil {
		return nil, nil, err
	}
	edges := make([]GraphEdge, len(links))
	for i, l := range links {
		edges[i] = GraphEdge{LinkRow: l}
		if l.Kind != "" {
			edges[i].Group = models.RelationGroup(l.Kind)
		}
	}
	return nodes, edges, nil
}

// Validate reports dangling links and indexing diagnostics. Dangling
// links are expected in normal operation; they only surface here.
func (s *Service) Validate(ctx context.Context) (*Report, error) {
	dangling, err := s.db.Dangling()
	if err != nil {
		return nil, err
	}
	diags, err := s.db.Diagnostics()
	if err != nil {
		return nil, err
	}
	_, total, err := s.ListDocuments(ctx, 1, 0, "", "")
	if err != nil {
		return nil, err
	}
	return &Report{
		Documents:   total,
		Dangling:    nonNilSlice(dangling),
		Diagnostics: nonNilSlice(diags),
		Clean:       len(dangling) == 0 && len(diags) == 0,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
