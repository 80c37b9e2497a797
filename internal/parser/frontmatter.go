package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/halvard/munin/internal/models"
)

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body.
//
// A document without any frontmatter block is valid: the whole text is
// body. An opening delimiter with no closing delimiter before EOF, or a
// block that is not valid YAML, degrades to a frontmatter-less document
// and reports malformed=true so callers can surface a diagnostic.
func splitFrontmatter(data []byte) (fm map[string]any, body string, malformed bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		// A longer dash run is a thematic break, not a delimiter.
		return nil, string(data), false
	}
	idx := findClosingDelim(rest)
	if idx < 0 {
		return map[string]any{}, string(data), true
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body = strings.TrimLeft(string(afterDelim), "\n\r")

	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return map[string]any{}, string(data), true
	}
	return fm, body, false
}

// findClosingDelim locates a "---" that starts its own line within rest.
// Returns the index of the newline preceding it, or -1.
func findClosingDelim(rest []byte) int {
	off := 0
	for {
		i := bytes.Index(rest[off:], []byte("\n---"))
		if i < 0 {
			return -1
		}
		pos := off + i
		tail := rest[pos+4:]
		if len(tail) == 0 || tail[0] == '\n' || tail[0] == '\r' {
			return pos
		}
		off = pos + 1
	}
}

// DecodeMetadata extracts the typed frontmatter fields the corpus
// convention uses. Unknown keys are ignored here but remain available in
// the raw mapping. Missing or unusable values stay zero.
func DecodeMetadata(fm map[string]any) models.Metadata {
	m := models.Metadata{
		Title:           stringField(fm, "title"),
		TitleEN:         stringField(fm, "title_en"),
		Author:          stringField(fm, "author"),
		CoAuthor:        stringField(fm, "co_author"),
		Type:            models.ParseDocType(stringField(fm, "type")),
		Year:            intField(fm, "year"),
		Publisher:       stringField(fm, "publisher"),
		Pages:           intField(fm, "pages"),
		Language:        stringField(fm, "language"),
		Themes:          stringListField(fm, "themes"),
		Rating:          intField(fm, "rating"),
		Tags:            stringListField(fm, "tags"),
		RelatedThinkers: stringListField(fm, "related_thinkers"),
		RelatedWorks:    stringListField(fm, "related_works"),
	}

	// The corpus writes this key uppercase, but be tolerant.
	m.ISBN = stringField(fm, "ISBN")
	if m.ISBN == "" {
		m.ISBN = stringField(fm, "isbn")
	}

	switch s := models.Status(stringField(fm, "status")); s {
	case models.StatusRead, models.StatusReading, models.StatusUnread:
		m.Status = s
	}
	if m.Rating < 1 || m.Rating > 5 {
		m.Rating = 0
	}
	return m
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

func intField(fm map[string]any, key string) int {
	if fm == nil {
		return 0
	}
	switch v := fm[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringListField(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	var out []string
	switch v := fm[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		// A scalar where a list is expected counts as a one-element list.
		s := strings.TrimSpace(v)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
