package schema

import (
	"strings"
	"time"
)

// Suggestion is an AI-proposed edit: replace Original with Replacement.
type Suggestion struct {
	ID          string   `json:"id" yaml:"id"`
	Original    string   `json:"original" yaml:"original"`
	Replacement string   `json:"replacement" yaml:"replacement"`
	Reason      string   `json:"reason" yaml:"reason"`
	Category    Category `json:"type" yaml:"type"`
	Status      Status   `json:"status" yaml:"status"`
}

// IsPending reports whether the suggestion still awaits a decision.
func (s Suggestion) IsPending() bool {
	return s.Status == StatusPending
}

// ChangeRecord is one structurally applied edit, kept so it can be undone.
type ChangeRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Original    string    `json:"original" yaml:"original"`
	Replacement string    `json:"replacement" yaml:"replacement"`
	Category    Category  `json:"type,omitempty" yaml:"type,omitempty"`
	Struck      string    `json:"struck" yaml:"struck"`     // Document text actually marked deleted
	Inserted    string    `json:"inserted" yaml:"inserted"` // Plain text actually inserted
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// ParseCategory maps analyzer output onto the closed category set.
// "clarity" and anything unknown collapse to style.
func ParseCategory(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryTone:
		return CategoryTone
	case CategoryGrammar:
		return CategoryGrammar
	case CategoryPolicy:
		return CategoryPolicy
	default:
		return CategoryStyle
	}
}

// CloneSuggestions returns an independent copy of the list.
func CloneSuggestions(in []Suggestion) []Suggestion {
	if in == nil {
		return nil
	}
	out := make([]Suggestion, len(in))
	copy(out, in)
	return out
}

// CountByStatus counts suggestions in the given status.
func CountByStatus(suggestions []Suggestion, status Status) int {
	n := 0
	for _, s := range suggestions {
		if s.Status == status {
			n++
		}
	}
	return n
}
