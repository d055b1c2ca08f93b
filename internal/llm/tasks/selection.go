package tasks

import (
	"context"
	"fmt"
	"strings"

	"dal/internal/llm"
)

// ExecuteSelectionTask rewrites an arbitrary selected fragment. The answer
// is trimmed; an empty answer yields the selection unchanged.
func ExecuteSelectionTask(
	client llm.Completer,
	ctx context.Context,
	input *SelectionInput,
) (*SelectionOutput, error) {
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			llm.SystemMessage(llm.SelectionSystemPrompt),
			llm.UserMessage(llm.BuildSelectionUserPrompt(input.SelectedText, input.Instruction)),
		},
		Temperature: 0.7,
	}

	content, err := client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("selection task failed: %w", err)
	}

	result := strings.TrimSpace(content)
	if result == "" {
		result = strings.TrimSpace(input.SelectedText)
	}
	return &SelectionOutput{Result: result}, nil
}
