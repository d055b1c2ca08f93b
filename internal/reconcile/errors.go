package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a suggestion, change record or document
	// span cannot be found. It is a non-fatal, user-visible condition.
	ErrNotFound = errors.New("not found")

	// ErrNotPending is returned when acting on a suggestion that was already
	// accepted or rejected.
	ErrNotPending = errors.New("suggestion is not pending")
)

// NotFoundError names what could not be found.
type NotFoundError struct {
	What string // "suggestion", "span", "change" or "edit"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.What, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
