package reconcile

import (
	"slices"

	"dal/pkg/schema"
)

// Store is the ordered suggestion list plus the log of applied changes.
// It is not safe for concurrent use; Engine guards it.
type Store struct {
	suggestions []schema.Suggestion
	changes     []schema.ChangeRecord
}

// NewStore returns a store holding a copy of suggestions.
func NewStore(suggestions []schema.Suggestion) *Store {
	return &Store{suggestions: schema.CloneSuggestions(suggestions)}
}

// Suggestions returns a copy of every suggestion in order.
func (s *Store) Suggestions() []schema.Suggestion {
	return schema.CloneSuggestions(s.suggestions)
}

// Pending returns a copy of the pending suggestions in order.
func (s *Store) Pending() []schema.Suggestion {
	var out []schema.Suggestion
	for _, sg := range s.suggestions {
		if sg.IsPending() {
			out = append(out, sg)
		}
	}
	return out
}

// Get returns the suggestion with the given id.
func (s *Store) Get(id string) (schema.Suggestion, bool) {
	if i := s.index(id); i >= 0 {
		return s.suggestions[i], true
	}
	return schema.Suggestion{}, false
}

// HasPending reports whether a pending suggestion with id exists.
func (s *Store) HasPending(id string) bool {
	i := s.index(id)
	return i >= 0 && s.suggestions[i].IsPending()
}

// Replace swaps the whole suggestion list.
func (s *Store) Replace(suggestions []schema.Suggestion) {
	s.suggestions = schema.CloneSuggestions(suggestions)
}

// SetStatus changes the status of suggestion id.
func (s *Store) SetStatus(id string, status schema.Status) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.suggestions[i].Status = status
	return true
}

// Update overwrites replacement and reason of suggestion id in place.
func (s *Store) Update(id, replacement, reason string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.suggestions[i].Replacement = replacement
	s.suggestions[i].Reason = reason
	return true
}

// Reinstate puts sg at the front of the list, dropping any earlier
// instance with the same id. It does nothing when a pending suggestion
// with that id already exists.
func (s *Store) Reinstate(sg schema.Suggestion) bool {
	if s.HasPending(sg.ID) {
		return false
	}
	s.suggestions = slices.DeleteFunc(s.suggestions, func(existing schema.Suggestion) bool {
		return existing.ID == sg.ID
	})
	s.suggestions = slices.Insert(s.suggestions, 0, sg)
	return true
}

// AcceptedCount returns the number of accepted suggestions.
func (s *Store) AcceptedCount() int {
	return schema.CountByStatus(s.suggestions, schema.StatusAccepted)
}

// Changes returns a copy of the change log in application order.
func (s *Store) Changes() []schema.ChangeRecord {
	return slices.Clone(s.changes)
}

// Change returns the change record with the given id.
func (s *Store) Change(id string) (schema.ChangeRecord, bool) {
	for _, c := range s.changes {
		if c.ID == id {
			return c, true
		}
	}
	return schema.ChangeRecord{}, false
}

// AppendChange records an applied edit.
func (s *Store) AppendChange(c schema.ChangeRecord) {
	s.changes = append(s.changes, c)
}

// RemoveChange drops the change record with the given id.
func (s *Store) RemoveChange(id string) bool {
	n := len(s.changes)
	s.changes = slices.DeleteFunc(s.changes, func(c schema.ChangeRecord) bool {
		return c.ID == id
	})
	return len(s.changes) != n
}

// ResetChanges clears the change log.
func (s *Store) ResetChanges() {
	s.changes = nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.suggestions, func(sg schema.Suggestion) bool {
		return sg.ID == id
	})
}
