package core

import (
	"fmt"

	"dal/internal/document"
	"dal/pkg/schema"
)

// Zoom bounds, in percent.
const (
	ZoomMin     = 50
	ZoomMax     = 200
	ZoomStep    = 10
	ZoomDefault = 100
)

// Mode is the editor view mode. A session is in exactly one mode.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// Identity is the authenticated user key. The zero value is anonymous.
type Identity string

// Anonymous reports whether no user is signed in.
func (i Identity) Anonymous() bool {
	return i == ""
}

// SessionState represents the in-memory session state.
type SessionState struct {
	DocumentTitle      string
	Zoom               int
	ActiveSuggestionID string
	Mode               Mode
	SelectionRange     *document.Range
	HistoryID          string
	OverallAnalysis    string
	Analyzing          bool
}

// NewSessionState creates a new session state.
func NewSessionState() *SessionState {
	return &SessionState{
		DocumentTitle: schema.DefaultTitle,
		Zoom:          ZoomDefault,
		Mode:          ModeEdit,
	}
}

// Clone creates a deep copy of the session state.
func (s *SessionState) Clone() *SessionState {
	clone := *s
	if s.SelectionRange != nil {
		r := *s.SelectionRange
		clone.SelectionRange = &r
	}
	return &clone
}

// clampZoom rounds percent to the nearest step inside the zoom bounds.
func clampZoom(percent int) int {
	stepped := (percent + ZoomStep/2) / ZoomStep * ZoomStep
	return min(max(stepped, ZoomMin), ZoomMax)
}

// ParseMode validates a mode name.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(raw); m {
	case ModeEdit, ModePreview:
		return m, nil
	default:
		return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", raw)}
	}
}
