package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"dal/internal/document"
	"dal/internal/history"
	"dal/internal/llm/tasks"
	"dal/internal/reconcile"
	"dal/pkg/schema"
)

// ErrHistoryDisabled is returned by history operations of a session
// created without a history store.
var ErrHistoryDisabled = errors.New("history is disabled")

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the session logger. It is shared with the engine.
func WithLogger(l Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSettings sets the editor settings sent with every analysis.
func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s }
}

// WithIdentity signs the session in. History is only written for
// signed-in sessions.
func WithIdentity(id Identity) Option {
	return func(c *Controller) { c.identity = id }
}

// WithEngineOptions passes options through to the reconciliation engine.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(c *Controller) { c.engineOpts = append(c.engineOpts, opts...) }
}

// Controller coordinates one analysis session: the document, its
// suggestions, the view state, the LLM collaborators and history.
// Network calls run outside the session lock.
type Controller struct {
	mu         sync.Mutex
	engine     *reconcile.Engine
	engineOpts []reconcile.Option
	executor   TaskExecutor
	store      history.Store
	logger     Logger
	settings   Settings
	identity   Identity
	state      *SessionState
	obs        observers
	persist    *persister
}

// NewController creates a session over an empty document. store may be nil,
// which disables history.
func NewController(executor TaskExecutor, store history.Store, opts ...Option) *Controller {
	c := &Controller{
		executor: executor,
		store:    store,
		logger:   nopLogger{},
		state:    NewSessionState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	engineOpts := append([]reconcile.Option{reconcile.WithLogger(c.logger)}, c.engineOpts...)
	c.engine = reconcile.NewEngine(document.New(), engineOpts...)
	if store != nil {
		c.persist = newPersister(store, c.logger, c.historySaved, c.historyFailed)
	}
	return c
}

// Close waits for queued history writes. The store is not closed.
func (c *Controller) Close() {
	if c.persist != nil {
		c.persist.close()
	}
}

// Subscribe registers fn for session events and returns its unsubscribe
// func. History notices are delivered from the persistence goroutine.
func (c *Controller) Subscribe(fn func(Event)) func() {
	return c.obs.subscribe(fn)
}

// AnalysisResult is the outcome of a successful Analyze.
type AnalysisResult struct {
	Suggestions     []schema.Suggestion
	OverallAnalysis string
	// Unlocatable lists suggestions that got no highlight.
	Unlocatable []string
}

// Analyze validates text, sends it to the analyzer and replaces the
// session's suggestions with the result. On any failure the session is
// left as it was.
func (c *Controller) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	c.mu.Lock()
	settings := c.settings
	c.mu.Unlock()

	req := schema.AnalyzeRequest{Text: text, CustomPrompt: settings.CustomPrompt, Tone: settings.Tone}
	if err := schema.Validate(req); err != nil {
		return nil, fieldValidationError(err)
	}

	c.mu.Lock()
	if c.state.Analyzing {
		c.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	c.state.Analyzing = true
	c.mu.Unlock()
	c.obs.emit(Event{Type: EventStateChanged})

	c.logger.Info("analysis started", "runes", utf8.RuneCountInString(text))
	out, err := c.executor.Analyze(ctx, &tasks.AnalyzeInput{
		Text:         req.Text,
		CustomPrompt: req.CustomPrompt,
		Tone:         req.Tone,
	})

	c.mu.Lock()
	c.state.Analyzing = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("analysis failed", "error", err)
		c.obs.emit(Event{Type: EventStateChanged})
		return nil, collaboratorError("analyzer", err)
	}

	var doc *document.Document
	if c.engine.PlainText() != text {
		doc = document.FromText(text)
	}
	c.engine.Reset(doc, out.Suggestions)
	hl := c.engine.Highlight()

	c.state.OverallAnalysis = cmp.Or(strings.TrimSpace(out.OverallAnalysis), tasks.DefaultOverallAnalysis)
	c.state.ActiveSuggestionID = ""
	c.state.SelectionRange = nil
	c.state.HistoryID = ""

	result := &AnalysisResult{
		Suggestions:     c.engine.Suggestions(),
		OverallAnalysis: c.state.OverallAnalysis,
		Unlocatable:     hl.Unlocatable,
	}
	job, ok := c.saveJobLocked(text)
	c.mu.Unlock()

	c.logger.Info("analysis completed",
		"suggestions", len(result.Suggestions),
		"highlighted", len(hl.Located),
		"unlocatable", len(hl.Unlocatable))

	c.schedule(job, ok)
	events := []Event{{Type: EventAnalysisCompleted}, {Type: EventSuggestionsChanged}, {Type: EventStateChanged}}
	if doc != nil {
		events = append(events, Event{Type: EventDocumentChanged})
	}
	c.obs.emit(events...)
	return result, nil
}

func validateText(text string) error {
	trimmed := strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		return &ValidationError{Field: "text", Message: "text must not be empty", Err: ErrEmptyText}
	case n < schema.AnalyzeTextMin:
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("text must be at least %d characters", schema.AnalyzeTextMin),
			Err:     ErrTextTooShort,
		}
	case utf8.RuneCountInString(text) > schema.AnalyzeTextMax:
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("text must be at most %d characters", schema.AnalyzeTextMax),
			Err:     ErrTextTooLong,
		}
	}
	return nil
}

func validateInstruction(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return &ValidationError{Field: "instruction", Message: "instruction is required"}
	}
	if utf8.RuneCountInString(instruction) > schema.InstructionMax {
		return &ValidationError{
			Field:   "instruction",
			Message: fmt.Sprintf("instruction must be at most %d characters", schema.InstructionMax),
		}
	}
	return nil
}

var editEvents = []Event{{Type: EventDocumentChanged}, {Type: EventSuggestionsChanged}}

// mutate runs fn under the session lock. On success the active suggestion
// is cleared, a history update is queued when persist is set, and events
// are emitted.
func (c *Controller) mutate(persist bool, events []Event, fn func() error) error {
	c.mu.Lock()
	if err := fn(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.ActiveSuggestionID = ""
	var job persistJob
	var ok bool
	if persist {
		job, ok = c.updateJobLocked()
	}
	c.mu.Unlock()

	c.schedule(job, ok)
	c.obs.emit(events...)
	return nil
}

// Accept applies a pending suggestion as a tracked edit.
func (c *Controller) Accept(id string) (schema.ChangeRecord, error) {
	var rec schema.ChangeRecord
	err := c.mutate(true, editEvents, func() (err error) {
		rec, err = c.engine.Accept(id)
		return err
	})
	return rec, err
}

// Reject dismisses a pending suggestion.
func (c *Controller) Reject(id string) error {
	return c.mutate(true, editEvents, func() error {
		return c.engine.Reject(id)
	})
}

// AcceptAll accepts every pending suggestion that can be located.
func (c *Controller) AcceptAll() reconcile.AcceptAllResult {
	var res reconcile.AcceptAllResult
	c.mutate(true, editEvents, func() error {
		res = c.engine.AcceptAll()
		return nil
	})
	if len(res.Failed) > 0 {
		c.obs.emit(Event{
			Type:    EventNotice,
			Message: fmt.Sprintf("%d suggestion(s) could not be applied", len(res.Failed)),
		})
	}
	return res
}

// Undo reverts a tracked edit and reinstates its suggestion.
func (c *Controller) Undo(changeID string) (schema.Suggestion, error) {
	var sg schema.Suggestion
	err := c.mutate(true, editEvents, func() (err error) {
		sg, err = c.engine.Undo(changeID)
		return err
	})
	return sg, err
}

// Refine asks the refinement collaborator for a new replacement of a
// pending suggestion.
func (c *Controller) Refine(ctx context.Context, id, instruction string) (schema.Suggestion, error) {
	if err := validateInstruction(instruction); err != nil {
		return schema.Suggestion{}, err
	}
	sg, err := c.engine.Refine(ctx, executorRefiner{executor: c.executor}, id, instruction)
	if err != nil {
		return schema.Suggestion{}, err
	}
	c.mutate(true, []Event{{Type: EventSuggestionsChanged}}, func() error { return nil })
	return sg, nil
}

// RefineSelection rewrites an arbitrary selected fragment and applies the
// result as a tracked edit. The saved selection range is preferred when it
// still holds selected.
func (c *Controller) RefineSelection(ctx context.Context, selected, instruction string) (schema.ChangeRecord, error) {
	if strings.TrimSpace(selected) == "" {
		return schema.ChangeRecord{}, &ValidationError{Field: "selection", Message: "selection is empty", Err: ErrEmptyText}
	}
	if err := validateInstruction(instruction); err != nil {
		return schema.ChangeRecord{}, err
	}
	if err := schema.Validate(schema.RefineSelectionRequest{SelectedText: selected, Instruction: instruction}); err != nil {
		return schema.ChangeRecord{}, fieldValidationError(err)
	}

	c.mu.Lock()
	var sel *document.Range
	if c.state.SelectionRange != nil {
		r := *c.state.SelectionRange
		sel = &r
	}
	c.mu.Unlock()

	out, err := c.executor.RefineSelection(ctx, &tasks.SelectionInput{SelectedText: selected, Instruction: instruction})
	if err != nil {
		return schema.ChangeRecord{}, collaboratorError("selection refinement", err)
	}

	var rec schema.ChangeRecord
	err = c.mutate(false, editEvents, func() (err error) {
		rec, err = c.engine.ApplyRefinement(sel, selected, out.Result)
		if err == nil {
			c.state.SelectionRange = nil
		}
		return err
	})
	return rec, err
}

// SelectSuggestion makes id the active suggestion and asks the view to
// scroll to it.
func (c *Controller) SelectSuggestion(id string) error {
	c.mu.Lock()
	if _, ok := c.engine.Suggestion(id); !ok {
		c.mu.Unlock()
		return &reconcile.NotFoundError{What: "suggestion", ID: id}
	}
	c.state.ActiveSuggestionID = id
	c.mu.Unlock()
	c.obs.emit(Event{Type: EventScrollRequested, SuggestionID: id}, Event{Type: EventStateChanged})
	return nil
}

// ClearSelection drops the active suggestion.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.state.ActiveSuggestionID = ""
	c.mu.Unlock()
	c.obs.emit(Event{Type: EventScrollRequested}, Event{Type: EventStateChanged})
}

// SetTitle renames the document. A blank title resets it to the default.
func (c *Controller) SetTitle(title string) error {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > schema.TitleMax {
		return &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", schema.TitleMax),
		}
	}
	c.setState(func(s *SessionState) {
		s.DocumentTitle = cmp.Or(title, schema.DefaultTitle)
	})
	return nil
}

// ZoomIn raises the zoom by one step and returns the new value.
func (c *Controller) ZoomIn() int {
	return c.SetZoom(c.State().Zoom + ZoomStep)
}

// ZoomOut lowers the zoom by one step and returns the new value.
func (c *Controller) ZoomOut() int {
	return c.SetZoom(c.State().Zoom - ZoomStep)
}

// SetZoom sets the zoom, rounded to a step and clamped to its bounds.
func (c *Controller) SetZoom(percent int) int {
	z := clampZoom(percent)
	c.setState(func(s *SessionState) { s.Zoom = z })
	return z
}

// SetMode switches between edit and preview.
func (c *Controller) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	c.setState(func(s *SessionState) { s.Mode = m })
	return nil
}

// TogglePreview flips the mode and returns the new one.
func (c *Controller) TogglePreview() Mode {
	var m Mode
	c.setState(func(s *SessionState) {
		if s.Mode == ModePreview {
			s.Mode = ModeEdit
		} else {
			s.Mode = ModePreview
		}
		m = s.Mode
	})
	return m
}

// SetSelectionRange saves the user's text selection; nil clears it.
func (c *Controller) SetSelectionRange(r *document.Range) error {
	if r != nil {
		if !c.engine.Document().Valid(*r) {
			return &ValidationError{Field: "selection", Message: "selection does not match the document", Err: document.ErrRangeInvalid}
		}
		cp := *r
		r = &cp
	}
	c.setState(func(s *SessionState) { s.SelectionRange = r })
	return nil
}

func (c *Controller) setState(fn func(*SessionState)) {
	c.mu.Lock()
	fn(c.state)
	c.mu.Unlock()
	c.obs.emit(Event{Type: EventStateChanged})
}

// DescribeImage generates alt text for an image.
func (c *Controller) DescribeImage(ctx context.Context, imageURL, prompt, caption string) (string, error) {
	req := schema.AltTextRequest{ImageURL: imageURL, Instruction: prompt, CurrentCaption: caption}
	if err := schema.Validate(req); err != nil {
		return "", fieldValidationError(err)
	}
	out, err := c.executor.AltText(ctx, &tasks.AltTextInput{
		ImageURL:    req.ImageURL,
		Instruction: req.Instruction,
		Caption:     req.CurrentCaption,
	})
	if err != nil {
		return "", collaboratorError("alt text", err)
	}
	if !out.Vision {
		c.logger.Debug("alt text from text-only fallback", "url", imageURL)
	}
	return cmp.Or(strings.TrimSpace(out.AltText), tasks.DefaultAltText), nil
}

// ListHistory returns the signed-in user's saved sessions, newest first.
func (c *Controller) ListHistory(ctx context.Context) ([]schema.HistoryRecord, error) {
	user, err := c.historyUser()
	if err != nil {
		return nil, err
	}
	return c.store.List(ctx, string(user))
}

// OpenHistory restores a saved session: document text, suggestions, title
// and history id. Later edits update that record.
func (c *Controller) OpenHistory(ctx context.Context, id string) error {
	user, err := c.historyUser()
	if err != nil {
		return err
	}
	rec, err := c.store.Get(ctx, string(user), id)
	if err != nil {
		return fmt.Errorf("open history %s: %w", id, err)
	}

	c.mu.Lock()
	c.engine.Reset(document.FromText(rec.Text), rec.Suggestions)
	c.engine.Highlight()
	c.state.DocumentTitle = cmp.Or(rec.Title, schema.DefaultTitle)
	c.state.HistoryID = rec.ID
	c.state.OverallAnalysis = ""
	c.state.ActiveSuggestionID = ""
	c.state.SelectionRange = nil
	c.mu.Unlock()

	c.persist.submit(persistJob{kind: jobAdopt, id: rec.ID})
	c.obs.emit(Event{Type: EventDocumentChanged}, Event{Type: EventSuggestionsChanged}, Event{Type: EventStateChanged})
	return nil
}

func (c *Controller) historyUser() (Identity, error) {
	if c.store == nil {
		return "", ErrHistoryDisabled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity.Anonymous() {
		return "", ErrNoIdentity
	}
	return c.identity, nil
}

// LoadDocument replaces the document and drops all suggestions.
func (c *Controller) LoadDocument(doc *document.Document) {
	if doc == nil {
		doc = document.New()
	}
	c.mu.Lock()
	c.engine.Reset(doc, nil)
	c.state.OverallAnalysis = ""
	c.state.ActiveSuggestionID = ""
	c.state.SelectionRange = nil
	c.state.HistoryID = ""
	c.mu.Unlock()
	c.obs.emit(editEvents...)
}

// Edit applies user edits. Ranges must come from the current Document.
func (c *Controller) Edit(ops ...document.Op) error {
	c.mu.Lock()
	err := c.engine.Edit(ops...)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.obs.emit(Event{Type: EventDocumentChanged})
	return nil
}

// SetSettings replaces the editor settings used by later analyses.
func (c *Controller) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// SetIdentity signs a user in or, with "", out.
func (c *Controller) SetIdentity(id Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

// State returns a copy of the view state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state.Clone()
}

// Suggestions returns all suggestions of the session.
func (c *Controller) Suggestions() []schema.Suggestion { return c.engine.Suggestions() }

// Pending returns the pending suggestions.
func (c *Controller) Pending() []schema.Suggestion { return c.engine.Pending() }

// Changes returns the tracked edits, oldest first.
func (c *Controller) Changes() []schema.ChangeRecord { return c.engine.Changes() }

// PlainText returns the document text, struck runs included.
func (c *Controller) PlainText() string { return c.engine.PlainText() }

// Document returns a snapshot of the document.
func (c *Controller) Document() *document.Document { return c.engine.Document() }

func (c *Controller) saveJobLocked(text string) (persistJob, bool) {
	if c.persist == nil || c.identity.Anonymous() {
		return persistJob{}, false
	}
	title := c.state.DocumentTitle
	if title == schema.DefaultTitle {
		title = ""
	}
	return persistJob{
		kind: jobSave,
		user: string(c.identity),
		request: schema.HistoryRequest{
			User:        string(c.identity),
			Text:        text,
			Title:       title,
			Suggestions: c.engine.Suggestions(),
		},
	}, true
}

func (c *Controller) updateJobLocked() (persistJob, bool) {
	if c.persist == nil || c.identity.Anonymous() {
		return persistJob{}, false
	}
	return persistJob{
		kind:        jobUpdate,
		user:        string(c.identity),
		suggestions: c.engine.Suggestions(),
		accepted:    c.engine.AcceptedCount(),
	}, true
}

// schedule must be called without c.mu held.
func (c *Controller) schedule(job persistJob, ok bool) {
	if ok {
		c.persist.submit(job)
	}
}

func (c *Controller) historySaved(id string) {
	c.mu.Lock()
	c.state.HistoryID = id
	c.mu.Unlock()
	c.obs.emit(Event{Type: EventStateChanged})
}

func (c *Controller) historyFailed(op string, err error) {
	msg := "Failed to save history"
	if op == "update" {
		msg = "Failed to update history"
	}
	if errors.Is(err, history.ErrNotFound) {
		msg += ": record no longer exists"
	}
	c.obs.emit(Event{Type: EventNotice, Message: msg})
}
