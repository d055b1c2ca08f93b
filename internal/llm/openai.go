package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is a Completer backed by the go-openai SDK. It works with
// OpenAI and any gateway that speaks the same protocol.
type OpenAIClient struct {
	config *Config
	client *openai.Client
}

// NewOpenAIClient creates a go-openai backed completer.
func NewOpenAIClient(config *Config) (*OpenAIClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	cfg := openai.DefaultConfig(config.APIKey)
	cfg.BaseURL = config.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIClient{
		config: config,
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

// MaxRetries returns the configured structured-output attempt count.
func (c *OpenAIClient) MaxRetries() int {
	return c.config.MaxRetries
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	model := creq.Model
	if model == "" {
		model = c.config.DefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(creq.Messages),
		Temperature: creq.Temperature,
		MaxTokens:   creq.MaxTokens,
	}
	if creq.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	if err != nil {
		slog.Error("OpenAI chat completion failed",
			"model", model,
			"error", err.Error(),
			"duration", duration,
		)
		return "", fromOpenAIError(err)
	}

	slog.Info("OpenAI chat completion completed",
		"model", model,
		"duration", duration,
		"total_tokens", resp.Usage.TotalTokens,
	)

	if len(resp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ImageURL == "" {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role: m.Role,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: m.ImageURL}},
			},
		})
	}
	return out
}

func fromOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := NewAPIError(apiErr.HTTPStatusCode, apiErr.Message)
		e.Err = err
		return e
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		e := NewAPIError(reqErr.HTTPStatusCode, reqErr.Error())
		e.Err = err
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}
