package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter and similar gateways) over plain HTTP.
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient creates a new HTTP completion client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// MaxRetries returns the configured structured-output attempt count.
func (c *Client) MaxRetries() int {
	return c.config.MaxRetries
}

// ChatRequest is the wire request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

// ResponseFormat selects JSON mode.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatMessage is a wire message. Content is either a string or a list of
// ContentPart values.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image for vision models.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatResponse is the wire response body.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

func toChatMessages(msgs []Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ImageURL == "" {
			out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
			continue
		}
		out = append(out, ChatMessage{
			Role: m.Role,
			Content: []ContentPart{
				{Type: "text", Text: m.Content},
				{Type: "image_url", ImageURL: &ImageURL{URL: m.ImageURL}},
			},
		})
	}
	return out
}

// Complete makes a single HTTP call to the chat completions endpoint.
func (c *Client) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	model := creq.Model
	if model == "" {
		model = c.config.DefaultModel
	}

	reqBody := ChatRequest{
		Model:     model,
		Messages:  toChatMessages(creq.Messages),
		MaxTokens: creq.MaxTokens,
	}
	if creq.JSONMode {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	if creq.Temperature > 0 {
		temp := creq.Temperature
		reqBody.Temperature = &temp
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Chat completion request failed",
			"error", err.Error(),
			"duration", duration,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", NewNetworkError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	slog.Info("Chat completion request completed",
		"model", model,
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			slog.Warn("Failed to read error response body", "error", err)
			return "", NewAPIError(resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		return "", NewAPIError(resp.StatusCode, errBody.String())
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", NewParseError("response body", err)
	}

	if chatResp.Error != nil {
		return "", NewAPIError(0, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
