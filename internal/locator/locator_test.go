package locator

import (
	"testing"

	"dal/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_Exact(t *testing.T) {
	doc := document.FromText("Необходимо осуществить проверку немедленно.")

	m, err := Locate(doc, "осуществить проверку")
	require.NoError(t, err)
	assert.True(t, m.Exact)
	assert.Equal(t, 11, m.Range.Start)
	assert.Equal(t, 31, m.Range.End)

	text, err := doc.TextBetween(m.Range)
	require.NoError(t, err)
	assert.Equal(t, "осуществить проверку", text)
}

func TestLocate_Idempotent(t *testing.T) {
	doc := document.FromText("first line\nsecond line with target\nthird")

	first, err := Locate(doc, "target")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Locate(doc, "target")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "first line\nsecond line with target\nthird", doc.PlainText())
}

func TestLocate_FirstOccurrenceWins(t *testing.T) {
	doc := document.FromText("repeat here\nrepeat there")

	m, err := Locate(doc, "repeat")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Range.Start)
}

func TestLocate_StripsMarkupAndWhitespace(t *testing.T) {
	doc := document.FromMarkdown("Это **очень** важно.")

	m, err := Locate(doc, "  **очень**  ")
	require.NoError(t, err)
	assert.True(t, m.Exact)
	text, _ := doc.TextBetween(m.Range)
	assert.Equal(t, "очень", text)
}

func TestLocate_PartialFallback(t *testing.T) {
	// "важно сделать" straddles the bold boundary, so only the anchor token matches.
	doc := document.FromBlocks([]document.Block{{Runs: []document.Run{
		document.NewRun("Очень важно"),
		document.NewRun(" сделать", document.NewMark(document.MarkBold)),
		document.NewRun(" это."),
	}}})

	m, err := Locate(doc, "важно сделать")
	require.NoError(t, err)
	assert.False(t, m.Exact)
	assert.Equal(t, "важно", m.Token)
	assert.Equal(t, 6, m.Range.Start)
	assert.Equal(t, 11, m.Range.End, "range is clipped to the containing run")
}

func TestLocate_PartialSkipsShortTokens(t *testing.T) {
	doc := document.FromText("abc longword tail")

	m, err := Locate(doc, "abc longword missing")
	require.NoError(t, err)
	assert.False(t, m.Exact)
	assert.Equal(t, "longword", m.Token)
	assert.Equal(t, 4, m.Range.Start)
	assert.Equal(t, 17, m.Range.End)
}

func TestLocate_NotFound(t *testing.T) {
	doc := document.FromText("Совсем другой текст.")

	tests := []string{"", "   ", "отсутствует полностью", "ab cd"}
	for _, fragment := range tests {
		t.Run(fragment, func(t *testing.T) {
			_, err := Locate(doc, fragment)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocate_SkipsTrackedRuns(t *testing.T) {
	doc := document.FromBlocks([]document.Block{{Runs: []document.Run{
		document.NewRun("old phrase", document.NewMark(document.MarkDeletion, "ref", "1")),
		document.NewRun(" "),
		document.NewRun("fresh wording", document.NewMark(document.MarkInsertion, "ref", "1")),
		document.NewRun(" and old phrase again"),
	}}})

	m, err := Locate(doc, "old phrase")
	require.NoError(t, err)
	assert.Equal(t, 29, m.Range.Start)

	_, err = Locate(doc, "fresh wording")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocateMarked(t *testing.T) {
	doc := document.FromText("one two three")
	r, err := doc.Range(4, 7)
	require.NoError(t, err)
	require.NoError(t, doc.ApplyMark(r, document.NewMark(document.MarkSuggestion, "id", "s1")))

	got, ok := LocateMarked(doc, "s1")
	require.True(t, ok)
	assert.Equal(t, 4, got.Start)
	assert.Equal(t, 7, got.End)

	_, ok = LocateMarked(doc, "missing")
	assert.False(t, ok)
}
