package schema

import (
	"time"
	"unicode/utf8"
)

// HistoryRecord is a persisted analysis session.
type HistoryRecord struct {
	ID            string       `json:"id" yaml:"id"`
	User          string       `json:"user" yaml:"user"`
	Title         string       `json:"title" yaml:"title"`
	Text          string       `json:"text" yaml:"text"`
	Suggestions   []Suggestion `json:"suggestions" yaml:"suggestions"`
	AcceptedCount int          `json:"accepted_count" yaml:"accepted_count"`
	CreatedAt     time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" yaml:"updated_at"`
}

// HistoryTitle picks the stored title: the user's title, or the first
// characters of the text when the session was never named.
func HistoryTitle(title, text string) string {
	if title != "" && title != DefaultTitle {
		return title
	}
	if utf8.RuneCountInString(text) <= UntitledTitleFallback {
		return text
	}
	runes := []rune(text)
	return string(runes[:UntitledTitleFallback]) + "..."
}
