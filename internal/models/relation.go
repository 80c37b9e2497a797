package models

import "strings"

// relationSynonyms groups free-text relation captions for display. The
// corpus mixes German and English phrasings; grouping never constrains
// which kinds an edge may carry.
var relationSynonyms = map[string]string{
	"supports":        "supports",
	"unterstützt":     "supports",
	"challenges":      "challenges",
	"herausforderung": "challenges",
	"widerspricht":    "challenges",
	"contrasts with":  "contrasts",
	"kontrast":        "contrasts",
	"relates to":      "relates",
	"verbindung":      "relates",
	"siehe auch":      "relates",
}

// RelationGroup returns the display group for a free-text relation kind.
// Unrecognised kinds are returned unchanged (lower-cased), never rejected.
func RelationGroup(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if g, ok := relationSynonyms[k]; ok {
		return g
	}
	return k
}
