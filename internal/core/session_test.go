package core

import (
	"testing"

	"dal/internal/document"
	"dal/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionState(t *testing.T) {
	state := NewSessionState()

	assert.Equal(t, schema.DefaultTitle, state.DocumentTitle)
	assert.Equal(t, ZoomDefault, state.Zoom)
	assert.Equal(t, ModeEdit, state.Mode)
	assert.Nil(t, state.SelectionRange)
	assert.Empty(t, state.HistoryID)
	assert.False(t, state.Analyzing)
}

func TestSessionState_Clone(t *testing.T) {
	doc := document.FromText("Некоторый текст.")
	r, err := doc.Range(0, 9)
	require.NoError(t, err)

	original := NewSessionState()
	original.SelectionRange = &r
	original.ActiveSuggestionID = "s1"

	clone := original.Clone()
	assert.Equal(t, original, clone)
	assert.NotSame(t, original.SelectionRange, clone.SelectionRange)

	clone.ActiveSuggestionID = "s2"
	clone.SelectionRange.End = 3
	assert.Equal(t, "s1", original.ActiveSuggestionID)
	assert.Equal(t, 9, original.SelectionRange.End)
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{100, 100},
		{104, 100},
		{105, 110},
		{49, 50},
		{-20, 50},
		{199, 200},
		{260, 200},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampZoom(tt.in), "clampZoom(%d)", tt.in)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("preview")
	require.NoError(t, err)
	assert.Equal(t, ModePreview, m)

	_, err = ParseMode("split")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "mode", ve.Field)
}

func TestIdentity(t *testing.T) {
	assert.True(t, Identity("").Anonymous())
	assert.False(t, Identity("alice").Anonymous())
}
