package core

import (
	"context"
	"errors"
	"fmt"

	"dal/internal/llm"
	"dal/pkg/schema"
)

// Validation sentinels for submitted text.
var (
	ErrEmptyText    = errors.New("text is empty")
	ErrTextTooShort = errors.New("text is too short")
	ErrTextTooLong  = errors.New("text is too long")
)

// ErrAnalysisInProgress is returned when Analyze is called while another
// analysis of the same session is still running.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// ErrNoIdentity is returned by history operations of an anonymous session.
var ErrNoIdentity = errors.New("no user identity")

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// fieldValidationError converts a schema.Validate failure.
func fieldValidationError(err error) error {
	var fe *schema.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Error(), Err: err}
	}
	return &ValidationError{Message: err.Error(), Err: err}
}

// Collaborator failure kinds.
const (
	KindTransport = "transport"
	KindProvider  = "provider"
)

// CollaboratorError is a failure reported by an external collaborator such
// as the analyzer. Message is the collaborator's message, unaltered.
type CollaboratorError struct {
	Collaborator string
	Kind         string
	Message      string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s error: %s", e.Collaborator, e.Kind, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Transport reports whether the collaborator could not be reached.
func (e *CollaboratorError) Transport() bool {
	return e.Kind == KindTransport
}

// collaboratorError classifies err from the named collaborator. Errors that
// already are CollaboratorErrors pass through.
func collaboratorError(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}

	out := &CollaboratorError{
		Collaborator: collaborator,
		Kind:         KindProvider,
		Message:      err.Error(),
		Err:          err,
	}
	var le *llm.LLMError
	switch {
	case errors.As(err, &le):
		out.Message = le.Message
		if le.Transport() {
			out.Kind = KindTransport
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		out.Kind = KindTransport
	}
	return out
}
