// Package parser extracts frontmatter, wiki-links, and metadata from
// Markdown documents.
package parser

import (
	"slices"
	"strings"

	"github.com/halvard/munin/internal/models"
)

// Result holds the output of parsing one Markdown document. Parsing is
// total: malformed input degrades to a frontmatter-less result with
// Malformed set instead of failing, so one bad file never aborts a run.
type Result struct {
	Meta        models.Metadata
	Frontmatter map[string]any
	Body        string
	Title       string
	Links       []models.LinkRef
	Malformed   bool
}

// Parse extracts frontmatter, body, wiki-links, and the typed metadata
// fields from raw Markdown bytes. It is a pure function.
func Parse(data []byte) *Result {
	fm, body, malformed := splitFrontmatter(data)
	meta := DecodeMetadata(fm)

	return &Result{
		Meta:        meta,
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(meta, body),
		Links:       slices.Collect(Links(body)),
		Malformed:   malformed,
	}
}

// deriveTitle returns the frontmatter title if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(meta models.Metadata, body string) string {
	if meta.Title != "" {
		return meta.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
