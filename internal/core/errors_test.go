package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dal/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "with field",
			err:      &ValidationError{Field: "text", Message: "text must not be empty", Err: ErrEmptyText},
			expected: "text: text must not be empty",
		},
		{
			name:     "without field",
			err:      &ValidationError{Message: "invalid input"},
			expected: "invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	wrapped := fmt.Errorf("analyze: %w", &ValidationError{Field: "text", Err: ErrTextTooShort})
	assert.ErrorIs(t, wrapped, ErrTextTooShort)
}

func TestCollaboratorError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      string
		message   string
		transport bool
	}{
		{"api", llm.NewAPIError(502, "bad gateway"), KindProvider, "provider error: bad gateway", false},
		{"parse", llm.NewParseError("{", errors.New("eof")), KindProvider, "Failed to parse LLM output: {", false},
		{"network", llm.NewNetworkError(errors.New("refused")), KindTransport, "Failed to reach the model provider. Check your network connection.", true},
		{"timeout", llm.NewTimeoutError(context.DeadlineExceeded), KindTransport, "Request timed out. The model may be under heavy load.", true},
		{"wrapped", fmt.Errorf("analysis task failed: %w", llm.NewAPIError(401, "no key")), KindProvider, "provider error: no key", false},
		{"context", context.DeadlineExceeded, KindTransport, context.DeadlineExceeded.Error(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := collaboratorError("analyzer", tt.err)

			var ce *CollaboratorError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "analyzer", ce.Collaborator)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.transport, ce.Transport())
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, collaboratorError("analyzer", nil))

	inner := &CollaboratorError{Collaborator: "refinement", Kind: KindProvider, Message: "x"}
	assert.Same(t, inner, collaboratorError("analyzer", inner), "already classified errors pass through")
}
