package parser

import (
	"iter"
	"strings"

	"github.com/halvard/munin/internal/models"
)

// maxKindLen bounds relation captions; anything longer is prose, not a
// relation phrase.
const maxKindLen = 48

// Links returns a lazy sequence of wiki-links in body, in left-to-right,
// top-to-bottom order of appearance. The sequence is deterministic and
// restartable: ranging over it twice yields the same records.
//
// Syntax: [[reference]] or [[reference|display label]]. When the label is
// omitted it equals the reference. The first ]] closes a link (nesting is
// not supported), an unterminated [[ is literal text, and brackets that
// span lines are treated as incidental prose.
func Links(body string) iter.Seq[models.LinkRef] {
	return func(yield func(models.LinkRef) bool) {
		pos := 0
		for {
			i := strings.Index(body[pos:], "[[")
			if i < 0 {
				return
			}
			open := pos + i
			j := strings.Index(body[open+2:], "]]")
			if j < 0 {
				return
			}
			inner := body[open+2 : open+2+j]
			pos = open + 2 + j + 2

			if strings.Contains(inner, "\n") {
				// Unmatched brackets across lines; rescan after the opener.
				pos = open + 2
				continue
			}

			target := inner
			label := ""
			if k := strings.Index(inner, "|"); k >= 0 {
				target = inner[:k]
				label = strings.TrimSpace(inner[k+1:])
			}
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			if label == "" {
				label = target
			}

			ref := models.LinkRef{
				Target: target,
				Label:  label,
				Kind:   relationKind(body, open),
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// relationKind inspects the text between the start of the link's line and
// the link itself. A caption like "- unterstützt: [[...]]" or
// "**Challenges:** [[...]]" names the relation; anything else yields "".
func relationKind(body string, linkStart int) string {
	lineStart := strings.LastIndexByte(body[:linkStart], '\n') + 1
	prefix := strings.TrimSpace(body[lineStart:linkStart])

	for _, marker := range []string{"-", "*", "+"} {
		prefix = strings.TrimSpace(strings.TrimPrefix(prefix, marker))
	}
	prefix = strings.TrimSuffix(prefix, "**")
	prefix = strings.TrimSpace(prefix)
	if !strings.HasSuffix(prefix, ":") {
		return ""
	}
	kind := strings.TrimSuffix(prefix, ":")
	kind = strings.Trim(kind, "*_ ")
	if kind == "" || len(kind) > maxKindLen || strings.Contains(kind, "]]") {
		return ""
	}
	return kind
}
