package schema

// Category classifies what kind of editorial problem a suggestion addresses.
type Category string

const (
	CategoryStyle   Category = "style"   // Wording, clarity, verbosity
	CategoryTone    Category = "tone"    // Tone of voice, emotional pressure
	CategoryGrammar Category = "grammar" // Spelling, punctuation, agreement
	CategoryPolicy  Category = "policy"  // Editorial policy violations (promises, superlatives)
)

// Status is the lifecycle state of a suggestion instance.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Formality, Empathy and Strictness are the tone-of-voice knobs sent to the analyzer.
type (
	Formality  string
	Empathy    string
	Strictness string
)

const (
	FormalityInformal Formality = "informal"
	FormalityModerate Formality = "moderate"
	FormalityFormal   Formality = "formal"

	EmpathyLow    Empathy = "low"
	EmpathyMedium Empathy = "medium"
	EmpathyHigh   Empathy = "high"

	StrictnessLenient  Strictness = "lenient"
	StrictnessModerate Strictness = "moderate"
	StrictnessStrict   Strictness = "strict"
)

// ValidationLimits defines the constraints for various fields.
const (
	AnalyzeTextMin        = 10
	AnalyzeTextMax        = 50000
	CustomPromptMax       = 2000
	FragmentMax           = 10000
	InstructionMax        = 1000
	ReasonMax             = 1000
	TitleMax              = 200
	HistoryTextMax        = 100000
	HistoryLimit          = 30
	ImageURLMax           = 2000
	CaptionMax            = 500
	UntitledTitleFallback = 50
)

// DefaultTitle is the title of a session the user never named.
const DefaultTitle = "Untitled"
