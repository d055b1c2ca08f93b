package tasks

import (
	"context"
	"fmt"
	"strings"

	"dal/internal/llm"
	"dal/pkg/schema"
)

// DefaultRefineExplanation is used when the model omits an explanation.
const DefaultRefineExplanation = "Suggestion refined"

// ExecuteRefineTask asks for a revised replacement of an existing suggestion.
// Missing fields fall back to the old replacement and a stock explanation.
func ExecuteRefineTask(
	client llm.Completer,
	ctx context.Context,
	input *schema.RefineRequest,
) (*RefineOutput, error) {
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			llm.SystemMessage(llm.BuildRefinePrompt(*input)),
		},
		Temperature: 0.5,
	}

	result, err := llm.GenerateStructured[RefineOutput](client, ctx, req, nil)
	if err != nil {
		return nil, fmt.Errorf("refine task failed: %w", err)
	}

	if strings.TrimSpace(result.NewReplacement) == "" {
		result.NewReplacement = input.Replacement
	}
	if strings.TrimSpace(result.Explanation) == "" {
		result.Explanation = DefaultRefineExplanation
	}
	return result, nil
}
