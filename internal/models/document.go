// Package models defines the domain types for Munin.
package models

// DocType classifies a document by the "type" frontmatter field.
type DocType string

const (
	DocTypeBook    DocType = "book"
	DocTypeThought DocType = "thought"
	DocTypeProfile DocType = "profile"
	DocTypeOther   DocType = "other"
)

// ParseDocType maps a raw frontmatter value to a DocType.
// Unrecognised values fall back to DocTypeOther.
func ParseDocType(s string) DocType {
	switch DocType(s) {
	case DocTypeBook, DocTypeThought, DocTypeProfile:
		return DocType(s)
	default:
		return DocTypeOther
	}
}

// Status is the reading status of a document.
type Status string

const (
	StatusRead    Status = "read"
	StatusReading Status = "reading"
	StatusUnread  Status = "unread"
)

// Metadata holds the typed frontmatter fields of a document. Fields the
// corpus convention does not set are zero-valued; Rating and Year use 0
// for "absent".
type Metadata struct {
	Title           string   `json:"title,omitempty"`
	TitleEN         string   `json:"title_en,omitempty"`
	Author          string   `json:"author,omitempty"`
	CoAuthor        string   `json:"co_author,omitempty"`
	Type            DocType  `json:"type,omitempty"`
	Year            int      `json:"year,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	Pages           int      `json:"pages,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	Language        string   `json:"language,omitempty"`
	Themes          []string `json:"themes,omitempty"`
	Status          Status   `json:"status,omitempty"`
	Rating          int      `json:"rating,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	RelatedThinkers []string `json:"related_thinkers,omitempty"`
	RelatedWorks    []string `json:"related_works,omitempty"`
}

// LinkRef is one wiki-link occurrence in a document body, in source order.
type LinkRef struct {
	Target string `json:"target"`
	Label  string `json:"label"`
	Kind   string `json:"kind,omitempty"`
}

// Diagnostic kinds reported by indexing and validation.
const (
	DiagMalformedFrontmatter = "malformed_frontmatter"
	DiagDuplicatePath        = "duplicate_path"
)

// Diagnostic is a non-fatal finding recorded while indexing the corpus.
type Diagnostic struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Detail string `json:"detail,omitempty"`
}
