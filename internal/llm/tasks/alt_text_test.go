package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dal/internal/llm"
)

func TestExecuteAltTextTask(t *testing.T) {
	ctx := context.Background()

	t.Run("vision answer", func(t *testing.T) {
		mock := llm.NewMockCompleter(`  "Кот спит на подоконнике"  `)

		out, err := ExecuteAltTextTask(mock, ctx, &AltTextInput{ImageURL: "https://example.com/cat.png"})
		require.NoError(t, err)
		assert.Equal(t, "Кот спит на подоконнике", out.AltText)
		assert.True(t, out.Vision)

		req := mock.LastRequest()
		assert.True(t, req.HasImage())
		assert.Equal(t, 150, req.MaxTokens)
		assert.Equal(t, llm.DefaultAltTextInstruction, req.Messages[1].Content)
	})

	t.Run("instruction and caption", func(t *testing.T) {
		mock := llm.NewMockCompleter("График продаж за год")

		_, err := ExecuteAltTextTask(mock, ctx, &AltTextInput{
			ImageURL:    "https://example.com/chart.png",
			Instruction: "кратко",
			Caption:     "Продажи",
		})
		require.NoError(t, err)

		req := mock.LastRequest()
		assert.Equal(t, 200, req.MaxTokens)
		assert.InDelta(t, 0.5, req.Temperature, 0.001)
		assert.Equal(t, "кратко", req.Messages[1].Content)
		assert.Contains(t, req.Messages[0].Content, `Image caption: "Продажи"`)
	})

	t.Run("falls back to text prompt", func(t *testing.T) {
		mock := &llm.MockCompleter{
			Errors:    []error{llm.NewAPIError(400, "image input not supported"), nil},
			Responses: []string{"", "Фото кота"},
		}

		out, err := ExecuteAltTextTask(mock, ctx, &AltTextInput{ImageURL: "https://example.com/cat.png"})
		require.NoError(t, err)
		assert.Equal(t, "Фото кота", out.AltText)
		assert.False(t, out.Vision)
		assert.Equal(t, 2, mock.Calls())

		req := mock.LastRequest()
		assert.False(t, req.HasImage())
		assert.Equal(t, 100, req.MaxTokens)
		assert.Contains(t, req.Messages[0].Content, "Image URL: https://example.com/cat.png")
	})

	t.Run("empty answer becomes default", func(t *testing.T) {
		mock := llm.NewMockCompleter("  ")

		out, err := ExecuteAltTextTask(mock, ctx, &AltTextInput{ImageURL: "https://example.com/cat.png"})
		require.NoError(t, err)
		assert.Equal(t, DefaultAltText, out.AltText)
	})

	t.Run("both requests fail", func(t *testing.T) {
		mock := &llm.MockCompleter{Errors: []error{llm.NewAPIError(500, "down")}}

		_, err := ExecuteAltTextTask(mock, ctx, &AltTextInput{ImageURL: "https://example.com/cat.png"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "alt text task failed")
		assert.Equal(t, 2, mock.Calls())
	})
}
