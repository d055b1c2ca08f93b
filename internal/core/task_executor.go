package core

import (
	"context"
	"sync"

	"dal/internal/llm"
	"dal/internal/llm/tasks"
	"dal/internal/reconcile"
	"dal/pkg/schema"
)

// TaskExecutor interface abstracts LLM task execution for testability.
type TaskExecutor interface {
	Analyze(ctx context.Context, input *tasks.AnalyzeInput) (*tasks.AnalyzeOutput, error)
	Refine(ctx context.Context, input *schema.RefineRequest) (*tasks.RefineOutput, error)
	RefineSelection(ctx context.Context, input *tasks.SelectionInput) (*tasks.SelectionOutput, error)
	AltText(ctx context.Context, input *tasks.AltTextInput) (*tasks.AltTextOutput, error)
}

// RealTaskExecutor implements TaskExecutor using real LLM calls.
type RealTaskExecutor struct {
	client llm.Completer
}

// NewRealTaskExecutor creates a TaskExecutor that calls real LLM APIs.
func NewRealTaskExecutor(client llm.Completer) TaskExecutor {
	return &RealTaskExecutor{client: client}
}

// Execute methods delegate to actual LLM task functions.
func (e *RealTaskExecutor) Analyze(ctx context.Context, input *tasks.AnalyzeInput) (*tasks.AnalyzeOutput, error) {
	return tasks.ExecuteAnalyzeTask(e.client, ctx, input)
}

func (e *RealTaskExecutor) Refine(ctx context.Context, input *schema.RefineRequest) (*tasks.RefineOutput, error) {
	return tasks.ExecuteRefineTask(e.client, ctx, input)
}

func (e *RealTaskExecutor) RefineSelection(ctx context.Context, input *tasks.SelectionInput) (*tasks.SelectionOutput, error) {
	return tasks.ExecuteSelectionTask(e.client, ctx, input)
}

func (e *RealTaskExecutor) AltText(ctx context.Context, input *tasks.AltTextInput) (*tasks.AltTextOutput, error) {
	return tasks.ExecuteAltTextTask(e.client, ctx, input)
}

// executorRefiner adapts a TaskExecutor to the engine's Refiner.
type executorRefiner struct {
	executor TaskExecutor
}

func (r executorRefiner) Refine(ctx context.Context, req schema.RefineRequest) (reconcile.Refinement, error) {
	out, err := r.executor.Refine(ctx, &req)
	if err != nil {
		return reconcile.Refinement{}, collaboratorError("refinement", err)
	}
	return reconcile.Refinement{Replacement: out.NewReplacement, Reason: out.Explanation}, nil
}

// MockTaskExecutor implements TaskExecutor for testing with canned responses.
type MockTaskExecutor struct {
	mu sync.Mutex

	AnalyzeOutput   *tasks.AnalyzeOutput
	RefineOutput    *tasks.RefineOutput
	SelectionOutput *tasks.SelectionOutput
	AltTextOutput   *tasks.AltTextOutput

	AnalyzeError   error
	RefineError    error
	SelectionError error
	AltTextError   error

	// AnalyzeGate, when set, blocks Analyze until it is closed or the
	// context ends.
	AnalyzeGate chan struct{}

	AnalyzeCalls   int
	RefineCalls    int
	SelectionCalls int
	AltTextCalls   int

	LastAnalyzeInput   *tasks.AnalyzeInput
	LastRefineInput    *schema.RefineRequest
	LastSelectionInput *tasks.SelectionInput
	LastAltTextInput   *tasks.AltTextInput
}

// NewMockTaskExecutor creates a mock executor with an empty analysis.
func NewMockTaskExecutor() *MockTaskExecutor {
	return &MockTaskExecutor{
		AnalyzeOutput: &tasks.AnalyzeOutput{
			Suggestions:     []schema.Suggestion{},
			OverallAnalysis: tasks.DefaultOverallAnalysis,
		},
		RefineOutput: &tasks.RefineOutput{
			NewReplacement: "refined",
			Explanation:    tasks.DefaultRefineExplanation,
		},
		SelectionOutput: &tasks.SelectionOutput{Result: "rewritten"},
		AltTextOutput:   &tasks.AltTextOutput{AltText: tasks.DefaultAltText, Vision: true},
	}
}

func (m *MockTaskExecutor) Analyze(ctx context.Context, input *tasks.AnalyzeInput) (*tasks.AnalyzeOutput, error) {
	m.mu.Lock()
	m.AnalyzeCalls++
	m.LastAnalyzeInput = input
	gate := m.AnalyzeGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, llm.NewTimeoutError(ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AnalyzeError != nil {
		return nil, m.AnalyzeError
	}
	out := *m.AnalyzeOutput
	out.Suggestions = schema.CloneSuggestions(m.AnalyzeOutput.Suggestions)
	return &out, nil
}

func (m *MockTaskExecutor) Refine(ctx context.Context, input *schema.RefineRequest) (*tasks.RefineOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefineCalls++
	m.LastRefineInput = input
	if m.RefineError != nil {
		return nil, m.RefineError
	}
	out := *m.RefineOutput
	return &out, nil
}

func (m *MockTaskExecutor) RefineSelection(ctx context.Context, input *tasks.SelectionInput) (*tasks.SelectionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SelectionCalls++
	m.LastSelectionInput = input
	if m.SelectionError != nil {
		return nil, m.SelectionError
	}
	out := *m.SelectionOutput
	return &out, nil
}

func (m *MockTaskExecutor) AltText(ctx context.Context, input *tasks.AltTextInput) (*tasks.AltTextOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AltTextCalls++
	m.LastAltTextInput = input
	if m.AltTextError != nil {
		return nil, m.AltTextError
	}
	out := *m.AltTextOutput
	return &out, nil
}

// Calls returns the analyze call count.
func (m *MockTaskExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AnalyzeCalls
}
