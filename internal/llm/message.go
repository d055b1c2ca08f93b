package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. ImageURL, when set, is sent as an image part
// after Content.
type Message struct {
	Role     string
	Content  string
	ImageURL string
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ImageMessage builds a user turn carrying an image.
func ImageMessage(content, imageURL string) Message {
	return Message{Role: RoleUser, Content: content, ImageURL: imageURL}
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	// Model overrides the client's default model when set
	Model       string
	Messages    []Message
	JSONMode    bool
	Temperature float32
	MaxTokens   int
}

// HasImage reports whether any message carries an image.
func (r CompletionRequest) HasImage() bool {
	for _, m := range r.Messages {
		if m.ImageURL != "" {
			return true
		}
	}
	return false
}

// Completer returns the assistant text for a chat completion request.
// Failures are *LLMError values.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
