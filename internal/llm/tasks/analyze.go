package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dal/internal/llm"
	"dal/pkg/schema"
)

// DefaultOverallAnalysis is reported when the model gives no summary.
const DefaultOverallAnalysis = "Text checked against the editorial policy."

// ExecuteAnalyzeTask runs the editorial analysis and normalizes the
// model's suggestions.
func ExecuteAnalyzeTask(
	client llm.Completer,
	ctx context.Context,
	input *AnalyzeInput,
) (*AnalyzeOutput, error) {
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			llm.SystemMessage(llm.BuildAnalysisSystemPrompt(input.CustomPrompt, input.Tone)),
			llm.UserMessage(llm.BuildAnalysisUserPrompt(input.Text)),
		},
		Temperature: 0.3,
	}

	validate := func(output *analysisResponse) error {
		if output.Suggestions == nil && strings.TrimSpace(output.OverallAnalysis) == "" {
			return fmt.Errorf("response must contain overall_analysis or suggestions")
		}
		return nil
	}

	result, err := llm.GenerateStructured(client, ctx, req, validate)
	if err != nil {
		return nil, fmt.Errorf("analyze task failed: %w", err)
	}

	return normalizeAnalysis(result)
}

func normalizeAnalysis(raw *analysisResponse) (*AnalyzeOutput, error) {
	out := &AnalyzeOutput{
		Suggestions:     make([]schema.Suggestion, 0, len(raw.Suggestions)),
		OverallAnalysis: strings.TrimSpace(raw.OverallAnalysis),
	}
	if out.OverallAnalysis == "" {
		out.OverallAnalysis = DefaultOverallAnalysis
	}

	seen := make(map[string]bool, len(raw.Suggestions))
	for i, rs := range raw.Suggestions {
		if strings.TrimSpace(rs.Original) == "" {
			slog.Warn("Dropping suggestion without original text", "index", i, "id", string(rs.ID))
			continue
		}

		id := strings.TrimSpace(string(rs.ID))
		if id == "" {
			id = fmt.Sprintf("suggestion-%d", i)
		}
		if seen[id] {
			fresh, err := schema.NewSuggestionID()
			if err != nil {
				return nil, fmt.Errorf("generate suggestion id: %w", err)
			}
			slog.Warn("Duplicate suggestion id from model", "id", id, "replacement_id", fresh)
			id = fresh
		}
		seen[id] = true

		replacement := rs.Replacement
		if replacement == "" {
			replacement = rs.Suggested
		}

		out.Suggestions = append(out.Suggestions, schema.Suggestion{
			ID:          id,
			Original:    rs.Original,
			Replacement: replacement,
			Reason:      rs.Reason,
			Category:    schema.ParseCategory(rs.Type),
			Status:      schema.StatusPending,
		})
	}

	return out, nil
}

// flexString accepts both JSON strings and numbers. Models often emit
// numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	return fmt.Errorf("id must be a string or number, got %s", data)
}
