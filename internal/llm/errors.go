package llm

import "fmt"

// ErrorType classifies an LLMError.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeParse      ErrorType = "parse"
)

// LLMError is returned by every Completer. Message is safe to show to the
// user as is.
type LLMError struct {
	Type    ErrorType
	Message string
	// Code is the provider's HTTP status, zero when no response arrived.
	Code int
	Err  error
}

func (e *LLMError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("LLM %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("LLM %s error: %s", e.Type, e.Message)
}

func (e *LLMError) Unwrap() error { return e.Err }

// Transport reports whether the request never got a provider answer.
func (e *LLMError) Transport() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	}
	return false
}

func NewNetworkError(err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeNetwork,
		Message: "Failed to reach the model provider. Check your network connection.",
		Err:     err,
	}
}

// NewAPIError wraps a non-2xx provider response.
func NewAPIError(code int, message string) *LLMError {
	return &LLMError{Type: ErrorTypeAPI, Code: code, Message: "provider error: " + message}
}

func NewValidationError(message string, err error) *LLMError {
	return &LLMError{Type: ErrorTypeValidation, Message: "Validation failed: " + message, Err: err}
}

func NewTimeoutError(err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeTimeout,
		Message: "Request timed out. The model may be under heavy load.",
		Err:     err,
	}
}

// NewParseError keeps the raw model output in the message so the retry
// prompt can quote it back.
func NewParseError(content string, err error) *LLMError {
	return &LLMError{Type: ErrorTypeParse, Message: "Failed to parse LLM output: " + content, Err: err}
}
