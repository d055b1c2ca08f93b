// Package locator maps suggestion fragments onto live document ranges.
//
// Matching is by literal content, first occurrence in document order.
// Runs already carrying a tracked deletion or insertion are never matched.
package locator

import (
	"errors"
	"strings"
	"unicode/utf8"

	"dal/internal/document"
	"dal/internal/markup"
)

// ErrNotFound is returned when a fragment cannot be located.
var ErrNotFound = errors.New("fragment not found in document")

// minTokenLen is the rune length a token must exceed to anchor a partial match.
const minTokenLen = 3

// Match is a located fragment.
type Match struct {
	Range document.Range
	Exact bool   // False when only the anchor token matched
	Token string // Anchor token of a partial match
}

// Normalize prepares a fragment for searching: Markdown is stripped and
// surrounding whitespace trimmed.
func Normalize(fragment string) string {
	return strings.TrimSpace(markup.Plain(strings.TrimSpace(fragment)))
}

// Locate finds fragment in doc. An exact match inside a single run wins;
// otherwise the first token longer than three characters anchors a
// best-effort range that never extends past the run containing it.
func Locate(doc *document.Document, fragment string) (Match, error) {
	needle := Normalize(fragment)
	if needle == "" {
		return Match{}, ErrNotFound
	}
	needleLen := utf8.RuneCountInString(needle)

	if start, _, ok := find(doc, needle); ok {
		r, err := doc.Range(start, start+needleLen)
		if err != nil {
			return Match{}, err
		}
		return Match{Range: r, Exact: true}, nil
	}

	token := anchorToken(needle)
	if token == "" {
		return Match{}, ErrNotFound
	}
	start, nodeEnd, ok := find(doc, token)
	if !ok {
		return Match{}, ErrNotFound
	}
	r, err := doc.Range(start, min(start+needleLen, nodeEnd))
	if err != nil {
		return Match{}, err
	}
	return Match{Range: r, Token: token}, nil
}

// LocateMarked returns the range highlighted for suggestion id.
func LocateMarked(doc *document.Document, id string) (document.Range, bool) {
	ranges := doc.MarkedRanges(document.MarkSuggestion, "id", id)
	if len(ranges) == 0 {
		return document.Range{}, false
	}
	return ranges[0], true
}

// find scans untracked runs in document order for needle and returns its
// absolute start and the end offset of the run containing it.
func find(doc *document.Document, needle string) (int, int, bool) {
	for node, offset := range doc.Descendants() {
		if node.HasMark(document.MarkDeletion) || node.HasMark(document.MarkInsertion) {
			continue
		}
		idx := strings.Index(node.Text, needle)
		if idx < 0 {
			continue
		}
		start := offset + utf8.RuneCountInString(node.Text[:idx])
		return start, offset + node.Len(), true
	}
	return 0, 0, false
}

func anchorToken(s string) string {
	for _, tok := range strings.Fields(s) {
		if utf8.RuneCountInString(tok) > minTokenLen {
			return tok
		}
	}
	return ""
}
