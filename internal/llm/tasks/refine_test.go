package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dal/internal/llm"
	"dal/pkg/schema"
)

func TestExecuteRefineTask(t *testing.T) {
	input := &schema.RefineRequest{
		Original:    "Торопитесь!",
		Replacement: "Запишитесь",
		Reason:      "давление",
		Instruction: "мягче",
	}

	tests := []struct {
		name            string
		response        string
		wantReplacement string
		wantExplanation string
	}{
		{
			name:            "full answer",
			response:        `{"newReplacement": "Приходите, когда будете готовы", "explanation": "Убрал срочность"}`,
			wantReplacement: "Приходите, когда будете готовы",
			wantExplanation: "Убрал срочность",
		},
		{
			name:            "missing fields fall back",
			response:        `{}`,
			wantReplacement: "Запишитесь",
			wantExplanation: DefaultRefineExplanation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockCompleter(tt.response)

			out, err := ExecuteRefineTask(mock, context.Background(), input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReplacement, out.NewReplacement)
			assert.Equal(t, tt.wantExplanation, out.Explanation)

			req := mock.LastRequest()
			assert.True(t, req.JSONMode)
			assert.InDelta(t, 0.5, req.Temperature, 0.001)
		})
	}
}

func TestExecuteRefineTask_Error(t *testing.T) {
	mock := &llm.MockCompleter{Errors: []error{llm.NewNetworkError(nil)}}

	_, err := ExecuteRefineTask(mock, context.Background(), &schema.RefineRequest{Original: "a", Replacement: "b", Instruction: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refine task failed")
}
