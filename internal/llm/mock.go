package llm

import (
	"context"
	"sync"
)

// MockCompleter replays canned completions in order and records requests.
// When the queue runs dry the last response (or error) repeats.
type MockCompleter struct {
	mu        sync.Mutex
	Responses []string
	Errors    []error
	Requests  []CompletionRequest
	calls     int
}

// NewMockCompleter returns a mock answering with responses in order.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

// Complete returns the next canned response or error.
func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	i := m.calls
	m.calls++

	if err := ctx.Err(); err != nil {
		return "", NewTimeoutError(err)
	}
	if len(m.Errors) > 0 {
		if err := m.Errors[min(i, len(m.Errors)-1)]; err != nil {
			return "", err
		}
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	return m.Responses[min(i, len(m.Responses)-1)], nil
}

// Calls returns the number of Complete invocations.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request.
func (m *MockCompleter) LastRequest() CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}
