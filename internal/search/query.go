// Package search turns a donor's free-text query into a store filter.
//
// Matching is a case-insensitive substring test on title and description.
// Both sides are case-folded in Go with the same Caser: requests store the
// folded text in a search column (see Document) and queries are folded by
// LikePattern. SQL LOWER() is not used because SQLite only folds ASCII. LIKE
// wildcards typed by the user are escaped so they match literally.
package search

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MaxQueryRunes caps how much of a query is used.
const MaxQueryRunes = 200

// likeEscaper escapes the escape char first, then the wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Normalize trims the query, collapses inner whitespace and clips it to
// MaxQueryRunes. An empty result means "no filter".
func Normalize(q string) string {
	q = strings.TrimSpace(normalizeWhitespace(q))
	if utf8.RuneCountInString(q) > MaxQueryRunes {
		q = string([]rune(q)[:MaxQueryRunes])
	}
	return q
}

// LikePattern returns the folded, escaped "%q%" pattern for q, or "" when q
// is blank. The pattern expects ESCAPE '\'.
func LikePattern(q string) string {
	q = Normalize(q)
	if q == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(Fold(q)) + "%"
}

// Fold case-folds s for caseless matching ("École" and "ÉCOLE" both give
// "école"). A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Document is the searchable text stored with a request. The newline keeps
// a pattern from matching across the title/description boundary, since
// normalized queries never contain one.
func Document(title, description string) string {
	return Fold(title) + "\n" + Fold(description)
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
