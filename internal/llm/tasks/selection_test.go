package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dal/internal/llm"
)

func TestExecuteSelectionTask(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"trimmed", "  Проверим сразу.\n", "Проверим сразу."},
		{"empty falls back to selection", "   ", "Необходимо осуществить проверку"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockCompleter(tt.response)

			out, err := ExecuteSelectionTask(mock, context.Background(), &SelectionInput{
				SelectedText: "Необходимо осуществить проверку",
				Instruction:  "проще",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)

			req := mock.LastRequest()
			assert.False(t, req.JSONMode)
			assert.InDelta(t, 0.7, req.Temperature, 0.001)
			assert.Contains(t, req.Messages[1].Content, "Request: проще")
		})
	}
}

func TestExecuteSelectionTask_Error(t *testing.T) {
	mock := &llm.MockCompleter{Errors: []error{llm.NewAPIError(500, "boom")}}

	_, err := ExecuteSelectionTask(mock, context.Background(), &SelectionInput{SelectedText: "a", Instruction: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selection task failed")
}
