package tasks

import (
	"dal/pkg/schema"
)

// Analyze Task Types

// AnalyzeInput is the input for the editorial analysis task.
type AnalyzeInput struct {
	Text         string              `json:"text"`
	CustomPrompt string              `json:"custom_prompt,omitempty"`
	Tone         schema.ToneSettings `json:"tone,omitempty"`
}

// AnalyzeOutput is the normalized analysis result.
type AnalyzeOutput struct {
	Suggestions     []schema.Suggestion `json:"suggestions"`
	OverallAnalysis string              `json:"overall_analysis"`
}

// analysisResponse is the raw model answer. Every field is optional.
type analysisResponse struct {
	OverallAnalysis string          `json:"overall_analysis"`
	Suggestions     []rawSuggestion `json:"suggestions"`
}

type rawSuggestion struct {
	ID          flexString `json:"id"`
	Original    string     `json:"original"`
	Replacement string     `json:"replacement"`
	Suggested   string     `json:"suggested"`
	Reason      string     `json:"reason"`
	Type        string     `json:"type"`
}

// Refine Task Types

// RefineOutput is the revised replacement for a suggestion.
type RefineOutput struct {
	NewReplacement string `json:"newReplacement"`
	Explanation    string `json:"explanation"`
}

// Selection Task Types

// SelectionInput is an arbitrary selected fragment and the user's request.
type SelectionInput struct {
	SelectedText string `json:"selected_text"`
	Instruction  string `json:"instruction"`
}

// SelectionOutput is the rewritten fragment.
type SelectionOutput struct {
	Result string `json:"result"`
}

// Alt Text Task Types

// AltTextInput describes an image to caption.
type AltTextInput struct {
	ImageURL    string `json:"image_url"`
	Instruction string `json:"instruction,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

// AltTextOutput is the generated alt text.
type AltTextOutput struct {
	AltText string `json:"alt_text"`
	// Vision is false when the text-only fallback produced the answer.
	Vision bool `json:"vision"`
}
