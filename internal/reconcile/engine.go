// Package reconcile applies and reverts suggestions against a live document
// as tracked edits: the struck text stays in place marked as a deletion and
// the replacement follows it marked as an insertion.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"dal/internal/document"
	"dal/internal/locator"
	"dal/internal/markup"
	"dal/pkg/schema"
)

// UndoneReason is the reason given to suggestions reinstated by Undo.
const UndoneReason = "undone edit"

// Logger is the logging surface the engine needs.
type Logger interface {
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Refiner produces a revised replacement for a pending suggestion.
type Refiner interface {
	Refine(ctx context.Context, req schema.RefineRequest) (Refinement, error)
}

// Refinement is a Refiner result.
type Refinement struct {
	Replacement string
	Reason      string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for change records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRefinementIDs sets the id source for ad hoc refinements.
func WithRefinementIDs(newID func() (string, error)) Option {
	return func(e *Engine) { e.newID = newID }
}

// Engine owns a document and its suggestion store. Every mutating call
// performs its document transaction and store update under one lock, so
// no caller observes one without the other.
type Engine struct {
	mu     sync.Mutex
	doc    *document.Document
	store  *Store
	logger Logger
	now    func() time.Time
	newID  func() (string, error)
}

// NewEngine creates an engine over doc with an empty suggestion store.
func NewEngine(doc *document.Document, opts ...Option) *Engine {
	if doc == nil {
		doc = document.New()
	}
	e := &Engine{
		doc:    doc,
		store:  NewStore(nil),
		logger: nopLogger{},
		now:    time.Now,
		newID:  schema.NewRefinementID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset replaces the suggestion list wholesale. A non-nil doc also replaces
// the document and clears the change log.
func (e *Engine) Reset(doc *document.Document, suggestions []schema.Suggestion) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if doc != nil {
		e.doc = doc
		e.store.ResetChanges()
	}
	e.store.Replace(suggestions)
}

// Document returns a snapshot copy of the document.
func (e *Engine) Document() *document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// PlainText returns the current document text.
func (e *Engine) PlainText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.PlainText()
}

// Edit applies user edits to the document. Ranges must come from a
// snapshot taken at the current revision.
func (e *Engine) Edit(ops ...document.Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.ApplyTransaction(ops...)
}

// Suggestions returns every suggestion in order.
func (e *Engine) Suggestions() []schema.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Suggestions()
}

// Pending returns the pending suggestions in order.
func (e *Engine) Pending() []schema.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Pending()
}

// Suggestion returns suggestion id.
func (e *Engine) Suggestion(id string) (schema.Suggestion, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(id)
}

// Changes returns the applied change log.
func (e *Engine) Changes() []schema.ChangeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Changes()
}

// AcceptedCount returns the number of accepted suggestions.
func (e *Engine) AcceptedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AcceptedCount()
}

// HighlightResult reports which pending suggestions were highlighted.
type HighlightResult struct {
	Located     []string
	Unlocatable []string
}

// Highlight marks the span of every pending suggestion with a suggestion
// mark carrying its id and category. Previous highlights are cleared.
// Suggestions that cannot be located, or whose span overlaps an earlier
// highlight, stay pending without a mark.
func (e *Engine) Highlight() HighlightResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res HighlightResult
	all, err := e.doc.Range(0, e.doc.Len())
	if err != nil {
		e.logger.Error("highlight: full document range rejected", "error", err)
		return res
	}
	ops := []document.Op{document.UnsetMark{Range: all, Kind: document.MarkSuggestion}}

	var taken []document.Range
	for _, sg := range e.store.Pending() {
		m, err := locator.Locate(e.doc, sg.Original)
		if err != nil {
			e.logger.Debug("suggestion not located", "id", sg.ID, "original", sg.Original)
			res.Unlocatable = append(res.Unlocatable, sg.ID)
			continue
		}
		if overlapsAny(m.Range, taken) {
			e.logger.Debug("suggestion overlaps an earlier highlight", "id", sg.ID)
			res.Unlocatable = append(res.Unlocatable, sg.ID)
			continue
		}
		taken = append(taken, m.Range)
		ops = append(ops, document.SetMark{Range: m.Range, Mark: highlightMark(sg)})
		res.Located = append(res.Located, sg.ID)
	}

	if err := e.doc.ApplyTransaction(ops...); err != nil {
		e.logger.Error("highlight transaction rejected", "error", err)
		return HighlightResult{Unlocatable: ids(e.store.Pending())}
	}
	return res
}

// Accept applies pending suggestion id as a tracked edit.
func (e *Engine) Accept(id string) (schema.ChangeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accept(id)
}

func (e *Engine) accept(id string) (schema.ChangeRecord, error) {
	sg, ok := e.store.Get(id)
	if !ok {
		return schema.ChangeRecord{}, &NotFoundError{What: "suggestion", ID: id}
	}
	if !sg.IsPending() {
		return schema.ChangeRecord{}, fmt.Errorf("accept %s: %w", id, ErrNotPending)
	}

	r, err := e.locateSuggestion(sg)
	if err != nil {
		return schema.ChangeRecord{}, err
	}

	edit, err := e.writeTrackedEdit(r, id, sg.Replacement)
	if err != nil {
		return schema.ChangeRecord{}, err
	}

	rec := schema.ChangeRecord{
		ID:          id,
		Original:    sg.Original,
		Replacement: sg.Replacement,
		Category:    sg.Category,
		Struck:      edit.struck,
		Inserted:    edit.inserted,
		Timestamp:   e.now(),
	}
	e.store.AppendChange(rec)
	e.store.SetStatus(id, schema.StatusAccepted)
	return rec, nil
}

// locateSuggestion prefers the suggestion's own highlight while it still
// holds the original text, then falls back to searching by content.
func (e *Engine) locateSuggestion(sg schema.Suggestion) (document.Range, error) {
	if r, ok := locator.LocateMarked(e.doc, sg.ID); ok {
		if text, err := e.doc.TextBetween(r); err == nil && text == locator.Normalize(sg.Original) {
			return r, nil
		}
	}
	m, err := locator.Locate(e.doc, sg.Original)
	if err != nil {
		if errors.Is(err, locator.ErrNotFound) {
			return document.Range{}, &NotFoundError{What: "span", ID: sg.ID}
		}
		return document.Range{}, e.defect("locate", sg.ID, err)
	}
	if !m.Exact {
		e.logger.Warn("suggestion matched partially", "id", sg.ID, "token", m.Token)
	}
	return m.Range, nil
}

// Reject dismisses pending suggestion id and clears its highlight.
func (e *Engine) Reject(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sg, ok := e.store.Get(id)
	if !ok {
		return &NotFoundError{What: "suggestion", ID: id}
	}
	if !sg.IsPending() {
		return fmt.Errorf("reject %s: %w", id, ErrNotPending)
	}

	if ops := e.clearHighlightOps(id); len(ops) > 0 {
		if err := e.doc.ApplyTransaction(ops...); err != nil {
			return e.defect("reject", id, err)
		}
	}
	e.store.SetStatus(id, schema.StatusRejected)
	return nil
}

// AcceptAllResult lists the outcome of AcceptAll.
type AcceptAllResult struct {
	Applied []schema.ChangeRecord
	Failed  []string
}

// AcceptAll accepts every pending suggestion. Suggestions are located up
// front and applied from the last located start position to the first,
// each one re-located against the live document.
func (e *Engine) AcceptAll() AcceptAllResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	type located struct {
		id    string
		start int
	}
	var res AcceptAllResult
	var order []located
	for _, sg := range e.store.Pending() {
		r, err := e.locateSuggestion(sg)
		if err != nil {
			res.Failed = append(res.Failed, sg.ID)
			continue
		}
		order = append(order, located{id: sg.ID, start: r.Start})
	}
	slices.SortStableFunc(order, func(a, b located) int {
		return b.start - a.start
	})

	for _, l := range order {
		rec, err := e.accept(l.id)
		if err != nil {
			e.logger.Warn("accept all: suggestion skipped", "id", l.id, "error", err)
			res.Failed = append(res.Failed, l.id)
			continue
		}
		res.Applied = append(res.Applied, rec)
	}
	return res
}

// Undo reverts change id: the tracked edit is replaced by the struck text
// and a pending suggestion with the same id is reinstated at the front.
func (e *Engine) Undo(changeID string) (schema.Suggestion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.store.Change(changeID)
	if !ok {
		return schema.Suggestion{}, &NotFoundError{What: "change", ID: changeID}
	}

	target, restored, ok := e.markedEdit(rec.ID)
	if !ok {
		target, restored, ok = e.literalEdit(rec)
	}
	if !ok {
		return schema.Suggestion{}, &NotFoundError{What: "edit", ID: changeID}
	}

	category := rec.Category
	if category == "" {
		category = schema.CategoryStyle
	}
	sg := schema.Suggestion{
		ID:          rec.ID,
		Original:    rec.Original,
		Replacement: rec.Replacement,
		Reason:      UndoneReason,
		Category:    category,
		Status:      schema.StatusPending,
	}
	reinstate := !e.store.HasPending(sg.ID)
	if reinstate {
		hl := highlightMark(sg)
		for i := range restored {
			restored[i] = document.NewRun(restored[i].Text, append(restored[i].Marks, hl)...)
		}
	}

	if err := e.doc.ApplyTransaction(document.Replace{Range: target, Runs: restored}); err != nil {
		return schema.Suggestion{}, e.defect("undo", changeID, err)
	}
	e.store.RemoveChange(changeID)
	if reinstate {
		e.store.Reinstate(sg)
	}
	return sg, nil
}

// markedEdit finds the deletion and insertion runs of change id and returns
// the range covering both together with the struck runs, tracking cleared.
func (e *Engine) markedEdit(id string) (document.Range, []document.Run, bool) {
	dels := e.doc.MarkedRanges(document.MarkDeletion, "ref", id)
	ins := e.doc.MarkedRanges(document.MarkInsertion, "ref", id)
	if len(dels) == 0 || len(ins) == 0 {
		return document.Range{}, nil, false
	}
	del, in := dels[0], ins[0]
	if del.End > in.Start {
		return document.Range{}, nil, false
	}
	gap, err := e.doc.Range(del.End, in.Start)
	if err != nil {
		return document.Range{}, nil, false
	}
	if sep, _ := e.doc.TextBetween(gap); strings.TrimSpace(sep) != "" {
		return document.Range{}, nil, false
	}
	target, err := e.doc.Range(del.Start, in.End)
	if err != nil {
		return document.Range{}, nil, false
	}
	return target, untracked(e.doc.RunsIn(del)), true
}

// literalEdit searches the plain text for "struck inserted" when the marks
// are gone.
func (e *Engine) literalEdit(rec schema.ChangeRecord) (document.Range, []document.Run, bool) {
	struck := rec.Struck
	if struck == "" {
		struck = locator.Normalize(rec.Original)
	}
	inserted := rec.Inserted
	if inserted == "" {
		inserted = markup.Plain(rec.Replacement)
	}
	needle := struck + " " + inserted

	text := e.doc.PlainText()
	idx := strings.Index(text, needle)
	if idx < 0 {
		return document.Range{}, nil, false
	}
	start := utf8.RuneCountInString(text[:idx])
	struckLen := utf8.RuneCountInString(struck)

	target, err := e.doc.Range(start, start+utf8.RuneCountInString(needle))
	if err != nil {
		return document.Range{}, nil, false
	}
	head, err := e.doc.Range(start, start+struckLen)
	if err != nil {
		return document.Range{}, nil, false
	}
	return target, untracked(e.doc.RunsIn(head)), true
}

// Refine asks refiner for a new replacement of pending suggestion id and
// stores it in place. The document is not touched. The lock is not held
// while the refiner runs.
func (e *Engine) Refine(ctx context.Context, refiner Refiner, id, instruction string) (schema.Suggestion, error) {
	e.mu.Lock()
	sg, ok := e.store.Get(id)
	e.mu.Unlock()
	if !ok {
		return schema.Suggestion{}, &NotFoundError{What: "suggestion", ID: id}
	}
	if !sg.IsPending() {
		return schema.Suggestion{}, fmt.Errorf("refine %s: %w", id, ErrNotPending)
	}

	out, err := refiner.Refine(ctx, schema.RefineRequest{
		Original:    sg.Original,
		Replacement: sg.Replacement,
		Reason:      sg.Reason,
		Instruction: instruction,
	})
	if err != nil {
		return schema.Suggestion{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.HasPending(id) {
		return schema.Suggestion{}, fmt.Errorf("refine %s: %w", id, ErrNotPending)
	}
	e.store.Update(id, out.Replacement, out.Reason)
	updated, _ := e.store.Get(id)
	return updated, nil
}

// ApplyRefinement writes an ad hoc rewrite of selected text as a tracked
// edit under a fresh refine-* id. The saved selection is used while it is
// still valid and still holds selected; otherwise selected is located by
// content.
func (e *Engine) ApplyRefinement(selection *document.Range, selected, result string) (schema.ChangeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.selectionRange(selection, selected)
	if !ok {
		m, err := locator.Locate(e.doc, selected)
		if err != nil {
			return schema.ChangeRecord{}, &NotFoundError{What: "span", ID: "selection"}
		}
		r = m.Range
	}

	id, err := e.newID()
	if err != nil {
		return schema.ChangeRecord{}, fmt.Errorf("mint refinement id: %w", err)
	}
	edit, err := e.writeTrackedEdit(r, id, result)
	if err != nil {
		return schema.ChangeRecord{}, err
	}

	rec := schema.ChangeRecord{
		ID:          id,
		Original:    selected,
		Replacement: result,
		Category:    schema.CategoryStyle,
		Struck:      edit.struck,
		Inserted:    edit.inserted,
		Timestamp:   e.now(),
	}
	e.store.AppendChange(rec)
	return rec, nil
}

func (e *Engine) selectionRange(selection *document.Range, selected string) (document.Range, bool) {
	if selection == nil || !e.doc.Valid(*selection) || selection.Len() == 0 {
		return document.Range{}, false
	}
	text, err := e.doc.TextBetween(*selection)
	if err != nil || strings.TrimSpace(text) != strings.TrimSpace(selected) {
		return document.Range{}, false
	}
	return *selection, true
}

// defect logs a document range failure, which indicates a bug in the
// caller, and reports it as a not-found abort.
func (e *Engine) defect(op, id string, err error) error {
	if errors.Is(err, document.ErrRangeInvalid) {
		e.logger.Error("document rejected a range obtained from itself", "op", op, "id", id, "error", err)
		return &NotFoundError{What: "span", ID: id}
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func (e *Engine) clearHighlightOps(id string) []document.Op {
	var ops []document.Op
	for _, r := range e.doc.MarkedRanges(document.MarkSuggestion, "id", id) {
		ops = append(ops, document.UnsetMark{Range: r, Kind: document.MarkSuggestion})
	}
	return ops
}

func highlightMark(sg schema.Suggestion) document.Mark {
	return document.NewMark(document.MarkSuggestion, "id", sg.ID, "category", string(sg.Category))
}

func overlapsAny(r document.Range, taken []document.Range) bool {
	for _, t := range taken {
		if r.Start < t.End && t.Start < r.End {
			return true
		}
	}
	return false
}

func ids(list []schema.Suggestion) []string {
	out := make([]string, len(list))
	for i, sg := range list {
		out[i] = sg.ID
	}
	return out
}

// untracked strips tracking marks, keeping formatting.
func untracked(runs []document.Run) []document.Run {
	out := make([]document.Run, len(runs))
	for i, r := range runs {
		out[i] = r.WithoutMarks(document.MarkDeletion, document.MarkInsertion, document.MarkSuggestion)
	}
	return out
}
