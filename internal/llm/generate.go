package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxRetries applies to completers that do not report their own.
const DefaultMaxRetries = 3

type retrier interface {
	MaxRetries() int
}

func maxRetries(c Completer) int {
	if r, ok := c.(retrier); ok && r.MaxRetries() > 0 {
		return r.MaxRetries()
	}
	return DefaultMaxRetries
}

// GenerateStructured requests JSON output, decodes it into T and runs
// validate. Parse and validation failures are fed back to the model as an
// extra user turn and retried. Network and API errors are returned at once.
func GenerateStructured[T any](
	client Completer,
	ctx context.Context,
	req CompletionRequest,
	validate func(*T) error,
) (*T, error) {
	req.JSONMode = true
	original := req.Messages
	attempts := maxRetries(client)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		slog.Info("LLM generation attempt",
			"attempt", attempt,
			"model", req.Model,
			"messages", len(req.Messages),
		)

		content, err := client.Complete(ctx, req)
		if err != nil {
			var llmErr *LLMError
			if !errors.As(err, &llmErr) || llmErr.Type != ErrorTypeParse {
				return nil, err
			}
			lastErr = err
			req.Messages = withFeedback(original, fmt.Sprintf("PREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", err))
			continue
		}

		var result T
		cleaned := cleanMarkdownCodeBlocks(content)
		if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
			lastErr = NewParseError(cleaned, err)
			slog.Warn("LLM output is not valid JSON",
				"attempt", attempt,
				"error", err.Error(),
			)
			req.Messages = withFeedback(original, fmt.Sprintf("PREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", err))
			continue
		}

		if validate != nil {
			if err := validate(&result); err != nil {
				lastErr = NewValidationError(err.Error(), err)
				slog.Warn("LLM output validation failed",
					"attempt", attempt,
					"error", err.Error(),
				)
				req.Messages = withFeedback(original, fmt.Sprintf("PREVIOUS VALIDATION ERROR:\n%v\n\nPlease fix the output to pass validation.", err))
				continue
			}
		}

		slog.Info("LLM generation succeeded",
			"attempt", attempt,
			"model", req.Model,
		)
		return &result, nil
	}

	return nil, fmt.Errorf("structured output failed after %d attempts: %w", attempts, lastErr)
}

func withFeedback(msgs []Message, feedback string) []Message {
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, msgs...)
	return append(out, UserMessage(feedback))
}

// cleanMarkdownCodeBlocks removes markdown code block wrappers from JSON.
// Some models wrap JSON in ```json...``` even in JSON mode.
func cleanMarkdownCodeBlocks(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSpace(content)
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	return content
}
