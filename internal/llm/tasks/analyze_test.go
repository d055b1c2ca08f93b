package tasks

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dal/internal/llm"
	"dal/pkg/schema"
)

func TestExecuteAnalyzeTask(t *testing.T) {
	mock := llm.NewMockCompleter(`{
		"overall_analysis": "Too much pressure on the reader.",
		"suggestions": [
			{"id": "1", "original": "осуществить проверку", "replacement": "Нужно проверить", "reason": "канцелярит", "type": "style"},
			{"id": 2, "original": "Торопитесь!", "suggested": "Запишитесь", "reason": "давление", "type": "tone"}
		]
	}`)

	out, err := ExecuteAnalyzeTask(mock, context.Background(), &AnalyzeInput{
		Text:         "Необходимо осуществить проверку немедленно. Торопитесь!",
		CustomPrompt: "Avoid bureaucratese",
		Tone:         schema.ToneSettings{Empathy: schema.EmpathyHigh},
	})
	require.NoError(t, err)

	assert.Equal(t, "Too much pressure on the reader.", out.OverallAnalysis)
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, schema.Suggestion{
		ID:          "1",
		Original:    "осуществить проверку",
		Replacement: "Нужно проверить",
		Reason:      "канцелярит",
		Category:    schema.CategoryStyle,
		Status:      schema.StatusPending,
	}, out.Suggestions[0])
	assert.Equal(t, "2", out.Suggestions[1].ID)
	assert.Equal(t, "Запишитесь", out.Suggestions[1].Replacement)
	assert.Equal(t, schema.CategoryTone, out.Suggestions[1].Category)

	req := mock.LastRequest()
	assert.True(t, req.JSONMode)
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, "ADDITIONAL INSTRUCTIONS:\nAvoid bureaucratese")
	assert.Contains(t, req.Messages[0].Content, "- Empathy:")
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, "Торопитесь!"))
}

func TestExecuteAnalyzeTask_Errors(t *testing.T) {
	mock := &llm.MockCompleter{Errors: []error{llm.NewAPIError(503, "unavailable")}}

	_, err := ExecuteAnalyzeTask(mock, context.Background(), &AnalyzeInput{Text: "some text here"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze task failed")

	var llmErr *llm.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 503, llmErr.Code)
}

func TestExecuteAnalyzeTask_RetriesEmptyObject(t *testing.T) {
	mock := llm.NewMockCompleter(`{}`, `{"suggestions": []}`)

	out, err := ExecuteAnalyzeTask(mock, context.Background(), &AnalyzeInput{Text: "some text here"})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
	assert.Empty(t, out.Suggestions)
	assert.Equal(t, DefaultOverallAnalysis, out.OverallAnalysis)
}

func TestNormalizeAnalysis(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, out *AnalyzeOutput)
	}{
		{
			name: "missing ids use index",
			raw:  `{"suggestions":[{"original":"a b c"},{"original":"d e f"}]}`,
			check: func(t *testing.T, out *AnalyzeOutput) {
				assert.Equal(t, "suggestion-0", out.Suggestions[0].ID)
				assert.Equal(t, "suggestion-1", out.Suggestions[1].ID)
			},
		},
		{
			name: "duplicate ids are replaced",
			raw:  `{"suggestions":[{"id":"1","original":"a"},{"id":"1","original":"b"}]}`,
			check: func(t *testing.T, out *AnalyzeOutput) {
				assert.Equal(t, "1", out.Suggestions[0].ID)
				assert.True(t, strings.HasPrefix(out.Suggestions[1].ID, "SUG-"))
			},
		},
		{
			name: "unknown category becomes style",
			raw:  `{"suggestions":[{"id":"1","original":"a","type":"clarity"}]}`,
			check: func(t *testing.T, out *AnalyzeOutput) {
				assert.Equal(t, schema.CategoryStyle, out.Suggestions[0].Category)
			},
		},
		{
			name: "empty original is dropped",
			raw:  `{"suggestions":[{"id":"1","original":"  "},{"id":"2","original":"x"}]}`,
			check: func(t *testing.T, out *AnalyzeOutput) {
				require.Len(t, out.Suggestions, 1)
				assert.Equal(t, "2", out.Suggestions[0].ID)
			},
		},
		{
			name: "replacement wins over suggested",
			raw:  `{"suggestions":[{"id":"1","original":"a","replacement":"b","suggested":"c"}]}`,
			check: func(t *testing.T, out *AnalyzeOutput) {
				assert.Equal(t, "b", out.Suggestions[0].Replacement)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw analysisResponse
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &raw))

			out, err := normalizeAnalysis(&raw)
			require.NoError(t, err)
			for _, s := range out.Suggestions {
				assert.Equal(t, schema.StatusPending, s.Status)
			}
			tt.check(t, out)
		})
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		ID flexString `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7}`), &v))
	assert.Equal(t, flexString("7"), v.ID)
	require.NoError(t, json.Unmarshal([]byte(`{"id": null}`), &v))
	assert.Equal(t, flexString(""), v.ID)
	assert.Error(t, json.Unmarshal([]byte(`{"id": {}}`), &v))
}
