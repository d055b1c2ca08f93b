package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"dal/internal/document"
	"dal/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, text string, suggestions ...schema.Suggestion) *Engine {
	t.Helper()
	e := NewEngine(document.FromText(text),
		WithClock(func() time.Time { return fixedTime }),
		WithRefinementIDs(func() (string, error) { return "refine-test", nil }),
	)
	e.Reset(nil, suggestions)
	return e
}

func pending(id, original, replacement string) schema.Suggestion {
	return schema.Suggestion{
		ID:          id,
		Original:    original,
		Replacement: replacement,
		Reason:      "reason " + id,
		Category:    schema.CategoryTone,
		Status:      schema.StatusPending,
	}
}

func TestScenario_CyrillicAcceptAndUndo(t *testing.T) {
	const text = "Необходимо осуществить проверку немедленно."
	e := newTestEngine(t, text, pending("s1", "Необходимо осуществить проверку", "Нужно проверить"))

	res := e.Highlight()
	assert.Equal(t, []string{"s1"}, res.Located)

	rec, err := e.Accept("s1")
	require.NoError(t, err)
	assert.Equal(t, "Необходимо осуществить проверку Нужно проверить немедленно.", e.PlainText())
	assert.Equal(t, "Необходимо осуществить проверку", rec.Struck)
	assert.Equal(t, "Нужно проверить", rec.Inserted)
	assert.Equal(t, fixedTime, rec.Timestamp)

	doc := e.Document()
	dels := doc.MarkedRanges(document.MarkDeletion, "id", "deleted-s1")
	ins := doc.MarkedRanges(document.MarkInsertion, "id", "inserted-s1")
	require.Len(t, dels, 1)
	require.Len(t, ins, 1)
	struck, _ := doc.TextBetween(dels[0])
	inserted, _ := doc.TextBetween(ins[0])
	assert.Equal(t, "Необходимо осуществить проверку", struck)
	assert.Equal(t, "Нужно проверить", inserted)
	assert.Empty(t, e.Pending())
	assert.Len(t, e.Changes(), 1)

	sg, err := e.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, text, e.PlainText())
	assert.Equal(t, UndoneReason, sg.Reason)

	list := e.Suggestions()
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, schema.StatusPending, list[0].Status)
	assert.Equal(t, "Необходимо осуществить проверку", list[0].Original)
	assert.Equal(t, "Нужно проверить", list[0].Replacement)
	assert.Empty(t, e.Changes())

	doc = e.Document()
	assert.Empty(t, doc.MarkedRanges(document.MarkDeletion, "", ""))
	assert.Empty(t, doc.MarkedRanges(document.MarkInsertion, "", ""))
	assert.Len(t, doc.MarkedRanges(document.MarkSuggestion, "id", "s1"), 1, "reinstated suggestion is highlighted again")
}

func TestScenario_AcceptNotFound(t *testing.T) {
	const text = "Совсем другой текст документа."
	e := newTestEngine(t, text, pending("s1", "фраза, которой нет", "замена"))
	revBefore := e.Document().Revision()

	_, err := e.Accept("s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "span", nf.What)

	assert.Equal(t, text, e.PlainText())
	assert.Equal(t, revBefore, e.Document().Revision())
	assert.Len(t, e.Pending(), 1)
	assert.Empty(t, e.Changes())
}

func TestAccept_Preconditions(t *testing.T) {
	e := newTestEngine(t, "some text here", pending("s1", "text", "words"))

	_, err := e.Accept("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Accept("s1")
	require.NoError(t, err)

	_, err = e.Accept("s1")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestAccept_FallsBackWhenHighlightWasEdited(t *testing.T) {
	e := newTestEngine(t, "alpha beta gamma beta", pending("s1", "beta", "BETA"))
	e.Highlight()

	// Type inside the highlighted "beta" so the mark no longer holds the original.
	doc := e.Document()
	at, err := doc.Range(8, 8)
	require.NoError(t, err)
	require.NoError(t, e.Edit(document.InsertText{At: at, Text: "XX"}))
	require.Equal(t, "alpha beXXta gamma beta", e.PlainText())

	_, err = e.Accept("s1")
	require.NoError(t, err)
	assert.Equal(t, "alpha beXXta gamma beta BETA", e.PlainText())
}

func TestAccept_PartialMatchUndoRoundTrip(t *testing.T) {
	doc := document.FromBlocks([]document.Block{{Runs: []document.Run{
		document.NewRun("Очень важно"),
		document.NewRun(" сделать", document.NewMark(document.MarkBold)),
		document.NewRun(" это."),
	}}})
	e := NewEngine(doc)
	e.Reset(nil, []schema.Suggestion{pending("s1", "важно сделать", "нужно")})
	before := e.PlainText()

	rec, err := e.Accept("s1")
	require.NoError(t, err)
	assert.Equal(t, "важно", rec.Struck)
	assert.Equal(t, "Очень важно нужно сделать это.", e.PlainText())

	_, err = e.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, before, e.PlainText())
}

func TestAccept_KeepsFormattingOfStruckText(t *testing.T) {
	doc := document.FromMarkdown("Это **очень важно** сейчас.")
	e := NewEngine(doc)
	e.Reset(nil, []schema.Suggestion{pending("s1", "очень важно", "существенно")})

	_, err := e.Accept("s1")
	require.NoError(t, err)

	for node := range e.Document().Descendants() {
		if node.HasMark(document.MarkDeletion) {
			assert.True(t, node.HasMark(document.MarkBold))
		}
	}

	_, err = e.Undo("s1")
	require.NoError(t, err)
	var bold []string
	for node := range e.Document().Descendants() {
		if node.HasMark(document.MarkBold) {
			bold = append(bold, node.Text)
		}
	}
	assert.Equal(t, []string{"очень важно"}, bold)
}

func TestAccept_MarkdownReplacement(t *testing.T) {
	e := newTestEngine(t, "one two three", pending("s1", "two", "**2**"))

	rec, err := e.Accept("s1")
	require.NoError(t, err)
	assert.Equal(t, "one two 2 three", e.PlainText())
	assert.Equal(t, "2", rec.Inserted)

	for node := range e.Document().Descendants() {
		if node.Text == "2" {
			assert.True(t, node.HasMark(document.MarkBold))
			assert.True(t, node.HasMark(document.MarkInsertion))
		}
	}
}

func TestReject(t *testing.T) {
	e := newTestEngine(t, "one two three", pending("s1", "two", "2"))
	e.Highlight()
	text := e.PlainText()

	require.NoError(t, e.Reject("s1"))

	sg, ok := e.Suggestion("s1")
	require.True(t, ok)
	assert.Equal(t, schema.StatusRejected, sg.Status)
	assert.Equal(t, text, e.PlainText())
	assert.Empty(t, e.Changes())
	assert.Empty(t, e.Document().MarkedRanges(document.MarkSuggestion, "id", "s1"))

	assert.ErrorIs(t, e.Reject("s1"), ErrNotPending)
	assert.ErrorIs(t, e.Reject("nope"), ErrNotFound)
}

func TestAcceptAll_OrderIndependent(t *testing.T) {
	tests := []struct {
		name  string
		order []schema.Suggestion
	}{
		{
			name: "left to right",
			order: []schema.Suggestion{
				pending("a", "first", "1st"),
				pending("b", "second", "2nd"),
				pending("c", "third", "3rd"),
			},
		},
		{
			name: "right to left",
			order: []schema.Suggestion{
				pending("c", "third", "3rd"),
				pending("b", "second", "2nd"),
				pending("a", "first", "1st"),
			},
		},
		{
			name: "shuffled",
			order: []schema.Suggestion{
				pending("b", "second", "2nd"),
				pending("c", "third", "3rd"),
				pending("a", "first", "1st"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, "first and second and third", tt.order...)

			res := e.AcceptAll()
			assert.Len(t, res.Applied, 3)
			assert.Empty(t, res.Failed)
			assert.Equal(t, "first 1st and second 2nd and third 3rd", e.PlainText())
			assert.Empty(t, e.Pending())
			assert.Equal(t, 3, e.AcceptedCount())
		})
	}
}

func TestAcceptAll_ReplacementContainingLaterOriginal(t *testing.T) {
	e := newTestEngine(t, "the cat sat on the mat",
		pending("a", "cat", "dog"),
		pending("b", "mat", "cat rug"),
	)

	res := e.AcceptAll()
	assert.Len(t, res.Applied, 2)
	assert.Equal(t, "the cat dog sat on the mat cat rug", e.PlainText())
	assert.Equal(t, "b", res.Applied[0].ID, "rightmost suggestion is applied first")
}

func TestAcceptAll_ReportsFailures(t *testing.T) {
	e := newTestEngine(t, "alpha beta",
		pending("a", "alpha", "A"),
		pending("x", "missing words", "nothing"),
	)

	res := e.AcceptAll()
	require.Len(t, res.Applied, 1)
	assert.Equal(t, []string{"x"}, res.Failed)

	sg, _ := e.Suggestion("x")
	assert.Equal(t, schema.StatusPending, sg.Status)
}

func TestUndo_LiteralFallback(t *testing.T) {
	e := newTestEngine(t, "keep it simple please", pending("s1", "simple", "plain"))
	_, err := e.Accept("s1")
	require.NoError(t, err)

	// Strip the tracking marks as an unrelated edit would.
	doc := e.Document()
	all, _ := doc.Range(0, doc.Len())
	require.NoError(t, e.Edit(
		document.UnsetMark{Range: all, Kind: document.MarkDeletion},
		document.UnsetMark{Range: all, Kind: document.MarkInsertion},
	))

	_, err = e.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, "keep it simple please", e.PlainText())
}

func TestUndo_Failures(t *testing.T) {
	e := newTestEngine(t, "keep it simple please", pending("s1", "simple", "plain"))

	_, err := e.Undo("s1")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "change", nf.What)

	_, err = e.Accept("s1")
	require.NoError(t, err)

	// Replace the whole tracked edit with unrelated text.
	doc := e.Document()
	all, _ := doc.Range(0, doc.Len())
	require.NoError(t, e.Edit(document.Replace{Range: all, Runs: []document.Run{document.NewRun("rewritten")}}))

	_, err = e.Undo("s1")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "edit", nf.What)
	assert.Equal(t, "rewritten", e.PlainText())
	assert.Len(t, e.Changes(), 1, "record survives a failed undo")
}

func TestUndo_DoesNotDuplicatePending(t *testing.T) {
	e := newTestEngine(t, "keep it simple please", pending("s1", "simple", "plain"))
	_, err := e.Accept("s1")
	require.NoError(t, err)

	// A fresh analysis returned the same id again while the change is still applied.
	e.Reset(nil, []schema.Suggestion{pending("s1", "please", "thanks")})

	_, err = e.Undo("s1")
	require.NoError(t, err)

	list := e.Suggestions()
	require.Len(t, list, 1)
	assert.Equal(t, "please", list[0].Original)
}

type stubRefiner struct {
	out   Refinement
	err   error
	calls int
	last  schema.RefineRequest
}

func (s *stubRefiner) Refine(_ context.Context, req schema.RefineRequest) (Refinement, error) {
	s.calls++
	s.last = req
	return s.out, s.err
}

func TestRefine(t *testing.T) {
	e := newTestEngine(t, "one two three", pending("s1", "two", "2"))
	text := e.PlainText()
	ref := &stubRefiner{out: Refinement{Replacement: "TWO", Reason: "louder"}}

	sg, err := e.Refine(context.Background(), ref, "s1", "make it loud")
	require.NoError(t, err)
	assert.Equal(t, "TWO", sg.Replacement)
	assert.Equal(t, "louder", sg.Reason)
	assert.Equal(t, "s1", sg.ID)
	assert.Equal(t, schema.StatusPending, sg.Status)
	assert.Equal(t, "make it loud", ref.last.Instruction)
	assert.Equal(t, "2", ref.last.Replacement)
	assert.Equal(t, text, e.PlainText(), "refine never touches the document")
}

func TestRefine_Errors(t *testing.T) {
	e := newTestEngine(t, "one two three", pending("s1", "two", "2"))

	ref := &stubRefiner{err: errors.New("provider down")}
	_, err := e.Refine(context.Background(), ref, "s1", "x")
	require.EqualError(t, err, "provider down")
	sg, _ := e.Suggestion("s1")
	assert.Equal(t, "2", sg.Replacement)

	_, err = e.Accept("s1")
	require.NoError(t, err)
	ref.err = nil
	calls := ref.calls
	_, err = e.Refine(context.Background(), ref, "s1", "x")
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, calls, ref.calls, "refiner is not called for settled suggestions")
}

func TestApplyRefinement(t *testing.T) {
	e := newTestEngine(t, "Мы гарантируем лучший результат.")
	doc := e.Document()
	sel, err := doc.Range(3, 14)
	require.NoError(t, err)

	rec, err := e.ApplyRefinement(&sel, "гарантируем", "стремимся к")
	require.NoError(t, err)
	assert.Equal(t, "refine-test", rec.ID)
	assert.Equal(t, "Мы гарантируем стремимся к лучший результат.", e.PlainText())

	_, err = e.Undo(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Мы гарантируем лучший результат.", e.PlainText())
}

func TestApplyRefinement_StaleSelectionFallsBackToSearch(t *testing.T) {
	e := newTestEngine(t, "alpha beta gamma")
	doc := e.Document()
	sel, _ := doc.Range(6, 10)

	at, _ := doc.Range(0, 0)
	require.NoError(t, e.Edit(document.InsertText{At: at, Text: ">> "}))

	_, err := e.ApplyRefinement(&sel, "beta", "BETA")
	require.NoError(t, err)
	assert.Equal(t, ">> alpha beta BETA gamma", e.PlainText())

	_, err = e.ApplyRefinement(nil, "absent", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHighlight(t *testing.T) {
	e := newTestEngine(t, "one two three four",
		pending("a", "two", "2"),
		pending("b", "two three", "23"),
		pending("c", "nowhere", "x"),
		pending("d", "four", "4"),
	)

	res := e.Highlight()
	assert.Equal(t, []string{"a", "d"}, res.Located)
	assert.Equal(t, []string{"b", "c"}, res.Unlocatable)

	doc := e.Document()
	marked := doc.MarkedRanges(document.MarkSuggestion, "", "")
	require.Len(t, marked, 2)
	runs := doc.RunsIn(marked[0])
	require.Len(t, runs, 1)
	m, _ := runs[0].Mark(document.MarkSuggestion)
	assert.Equal(t, "a", m.Attr("id"))
	assert.Equal(t, "tone", m.Attr("category"))

	// Highlighting again replaces the previous marks.
	e.Reset(nil, []schema.Suggestion{pending("z", "three", "3")})
	e.Highlight()
	marked = e.Document().MarkedRanges(document.MarkSuggestion, "", "")
	require.Len(t, marked, 1)
	assert.Equal(t, 8, marked[0].Start)
}

func TestReset_ReplacesDocumentAndClearsChanges(t *testing.T) {
	e := newTestEngine(t, "one two", pending("s1", "two", "2"))
	_, err := e.Accept("s1")
	require.NoError(t, err)

	e.Reset(document.FromText("new text"), nil)
	assert.Equal(t, "new text", e.PlainText())
	assert.Empty(t, e.Changes())
	assert.Empty(t, e.Suggestions())
}
