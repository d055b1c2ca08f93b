package tasks

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dal/internal/llm"
)

// DefaultAltText is returned when no model produced a description.
const DefaultAltText = "Image"

// ExecuteAltTextTask describes an image. The vision request goes first;
// when the provider rejects it a text-only request built from the URL,
// caption and instruction is tried. Both failing is an error.
func ExecuteAltTextTask(
	client llm.Completer,
	ctx context.Context,
	input *AltTextInput,
) (*AltTextOutput, error) {
	instruction := strings.TrimSpace(input.Instruction)
	caption := strings.TrimSpace(input.Caption)

	vision := llm.CompletionRequest{
		Messages: []llm.Message{
			llm.SystemMessage(llm.BuildAltTextSystemPrompt(caption)),
			llm.ImageMessage(cmp.Or(instruction, llm.DefaultAltTextInstruction), input.ImageURL),
		},
		Temperature: 0.3,
		MaxTokens:   150,
	}
	if instruction != "" {
		vision.Temperature = 0.5
		vision.MaxTokens = 200
	}

	content, err := client.Complete(ctx, vision)
	if err == nil {
		return &AltTextOutput{AltText: altTextOrDefault(content), Vision: true}, nil
	}

	slog.Warn("Vision alt text failed, falling back to text prompt",
		"image_url", input.ImageURL,
		"error", err.Error(),
	)

	fallback := llm.CompletionRequest{
		Messages: []llm.Message{
			llm.UserMessage(llm.BuildAltTextFallbackPrompt(input.ImageURL, instruction, caption)),
		},
		Temperature: vision.Temperature,
		MaxTokens:   vision.MaxTokens - 50,
	}

	content, fbErr := client.Complete(ctx, fallback)
	if fbErr != nil {
		return nil, fmt.Errorf("alt text task failed: %w", err)
	}
	return &AltTextOutput{AltText: altTextOrDefault(content)}, nil
}

func altTextOrDefault(content string) string {
	text := strings.Trim(strings.TrimSpace(content), `"«»`)
	if text == "" {
		return DefaultAltText
	}
	return text
}
