package schema

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewSuggestionID generates a new suggestion ID in format SUG-{nanoid(10)}.
func NewSuggestionID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUG-%s", id), nil
}

// NewRefinementID generates an ID for an ad hoc selection refinement in format refine-{nanoid(10)}.
func NewRefinementID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("refine-%s", id), nil
}

// NewHistoryID generates a new history record ID in format HIST-{nanoid(12)}.
func NewHistoryID() (string, error) {
	id, err := gonanoid.New(12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("HIST-%s", id), nil
}

// NewEventID generates a new event ID in format EVT-{nanoid(10)}.
func NewEventID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EVT-%s", id), nil
}
