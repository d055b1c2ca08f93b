package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a request DTO against its struct tags. The returned error
// names the first offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return err
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e *FieldError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field, strings.ReplaceAll(e.Param, " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", e.Field)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Rule)
	}
}

// ValidateSuggestion validates an individual suggestion.
func ValidateSuggestion(s *Suggestion) error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Original == "" {
		return fmt.Errorf("original must not be empty")
	}
	if s.Replacement == "" {
		return fmt.Errorf("replacement must not be empty")
	}
	switch s.Category {
	case CategoryStyle, CategoryTone, CategoryGrammar, CategoryPolicy:
		// Valid
	default:
		return fmt.Errorf("invalid category: %s", s.Category)
	}
	switch s.Status {
	case StatusPending, StatusAccepted, StatusRejected:
		// Valid
	default:
		return fmt.Errorf("invalid status: %s", s.Status)
	}
	return nil
}
