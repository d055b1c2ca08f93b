package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatHandler(t *testing.T, content string, inspect func(ChatRequest)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if inspect != nil {
			inspect(req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		APIKey:       "test-key",
		BaseURL:      url,
		DefaultModel: "test-model",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		client, err := NewClient(&Config{
			APIKey:       "test-key",
			BaseURL:      "https://api.test.com",
			DefaultModel: "test-model",
		})
		require.NoError(t, err)
		assert.Equal(t, 60*time.Second, client.config.Timeout)
		assert.Equal(t, 3, client.MaxRetries())
	})

	t.Run("missing API key", func(t *testing.T) {
		_, err := NewClient(&Config{BaseURL: "https://api.test.com", DefaultModel: "m"})
		assert.Error(t, err)
	})

	t.Run("missing base URL", func(t *testing.T) {
		_, err := NewClient(&Config{APIKey: "k", DefaultModel: "m"})
		assert.Error(t, err)
	})

	t.Run("missing model", func(t *testing.T) {
		_, err := NewClient(&Config{APIKey: "k", BaseURL: "https://api.test.com"})
		assert.Error(t, err)
	})
}

func TestClient_Complete(t *testing.T) {
	t.Run("text request", func(t *testing.T) {
		var got ChatRequest
		server := httptest.NewServer(chatHandler(t, "hello", func(r ChatRequest) { got = r }))
		defer server.Close()

		out, err := newTestClient(t, server.URL).Complete(context.Background(), CompletionRequest{
			Messages:    []Message{SystemMessage("sys"), UserMessage("hi")},
			JSONMode:    true,
			Temperature: 0.3,
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", out)

		assert.Equal(t, "test-model", got.Model)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "hi", got.Messages[1].Content)
		require.NotNil(t, got.ResponseFormat)
		assert.Equal(t, "json_object", got.ResponseFormat.Type)
		require.NotNil(t, got.Temperature)
		assert.InDelta(t, 0.3, *got.Temperature, 0.001)
	})

	t.Run("image request uses content parts", func(t *testing.T) {
		var raw map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&raw)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a cat"}}]}`))
		}))
		defer server.Close()

		out, err := newTestClient(t, server.URL).Complete(context.Background(), CompletionRequest{
			Model:    "vision-model",
			Messages: []Message{ImageMessage("describe", "https://example.com/cat.png")},
		})
		require.NoError(t, err)
		assert.Equal(t, "a cat", out)

		assert.Equal(t, "vision-model", raw["model"])
		msgs := raw["messages"].([]any)
		parts := msgs[0].(map[string]any)["content"].([]any)
		require.Len(t, parts, 2)
		assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
		assert.Nil(t, raw["response_format"])
	})

	t.Run("API error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Complete(context.Background(), CompletionRequest{
			Messages: []Message{UserMessage("hi")},
		})
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrorTypeAPI, llmErr.Type)
		assert.Equal(t, http.StatusUnauthorized, llmErr.Code)
		assert.False(t, llmErr.Transport())
	})

	t.Run("error in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","code":503}}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Complete(context.Background(), CompletionRequest{
			Messages: []Message{UserMessage("hi")},
		})
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Contains(t, llmErr.Message, "model overloaded")
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Complete(context.Background(), CompletionRequest{
			Messages: []Message{UserMessage("hi")},
		})
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrorTypeAPI, llmErr.Type)
	})

	t.Run("network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestClient(t, url).Complete(context.Background(), CompletionRequest{
			Messages: []Message{UserMessage("hi")},
		})
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.True(t, llmErr.Transport())
	})
}

func TestLLMError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewNetworkError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network")

	apiErr := NewAPIError(500, "boom")
	assert.Equal(t, "LLM api error (code 500): provider error: boom", apiErr.Error())
	assert.True(t, NewTimeoutError(context.DeadlineExceeded).Transport())
}
