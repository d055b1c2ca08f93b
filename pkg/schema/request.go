package schema

// ToneSettings are optional tone-of-voice knobs for analysis.
type ToneSettings struct {
	Formality  Formality  `json:"formality,omitempty" yaml:"formality,omitempty" validate:"omitempty,oneof=informal moderate formal"`
	Empathy    Empathy    `json:"empathy,omitempty" yaml:"empathy,omitempty" validate:"omitempty,oneof=low medium high"`
	Strictness Strictness `json:"strictness,omitempty" yaml:"strictness,omitempty" validate:"omitempty,oneof=lenient moderate strict"`
}

// IsZero reports whether no tone knob is set.
func (t ToneSettings) IsZero() bool {
	return t.Formality == "" && t.Empathy == "" && t.Strictness == ""
}

// AnalyzeRequest is the payload sent to the analyzer.
type AnalyzeRequest struct {
	Text         string       `json:"text" validate:"required,min=10,max=50000"`
	CustomPrompt string       `json:"customPrompt,omitempty" validate:"max=2000"`
	Tone         ToneSettings `json:"toneSettings"`
}

// RefineRequest asks for a revised replacement of a pending suggestion.
type RefineRequest struct {
	Original    string `json:"original" validate:"required,max=10000"`
	Replacement string `json:"replacement" validate:"required,max=10000"`
	Reason      string `json:"reason,omitempty" validate:"max=1000"`
	Instruction string `json:"userPrompt" validate:"required,max=1000"`
}

// RefineSelectionRequest asks for a rewrite of an arbitrary selection.
type RefineSelectionRequest struct {
	SelectedText string `json:"selectedText" validate:"required,max=10000"`
	Instruction  string `json:"userPrompt" validate:"required,max=1000"`
}

// AltTextRequest asks for an image description.
type AltTextRequest struct {
	ImageURL       string `json:"imageUrl" validate:"required,url,max=2000"`
	Instruction    string `json:"userPrompt,omitempty" validate:"max=1000"`
	CurrentCaption string `json:"currentCaption,omitempty" validate:"max=500"`
}

// HistoryRequest is the payload for persisting a new session.
type HistoryRequest struct {
	User        string       `json:"user" validate:"required"`
	Text        string       `json:"originalText" validate:"max=100000"`
	Title       string       `json:"title,omitempty" validate:"max=200"`
	Suggestions []Suggestion `json:"suggestions" validate:"dive"`
}
