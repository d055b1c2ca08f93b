// Package history persists analysis sessions per user. Each user keeps at
// most schema.HistoryLimit records; the oldest are dropped first.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dal/pkg/schema"
)

// ErrNotFound is returned for unknown ids and for records owned by another user.
var ErrNotFound = errors.New("history record not found")

// Store is a history backend.
type Store interface {
	// Save validates req and stores it as a new record.
	Save(ctx context.Context, req schema.HistoryRequest) (schema.HistoryRecord, error)
	// Update replaces the suggestions and accepted count of a record.
	Update(ctx context.Context, user, id string, suggestions []schema.Suggestion, acceptedCount int) error
	// List returns the user's records, newest first.
	List(ctx context.Context, user string) ([]schema.HistoryRecord, error)
	Get(ctx context.Context, user, id string) (schema.HistoryRecord, error)
	Close() error
}

func newRecord(req schema.HistoryRequest, id string, now time.Time) (schema.HistoryRecord, error) {
	if err := schema.Validate(req); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("invalid history request: %w", err)
	}
	suggestions := schema.CloneSuggestions(req.Suggestions)
	if suggestions == nil {
		suggestions = []schema.Suggestion{}
	}
	return schema.HistoryRecord{
		ID:            id,
		User:          req.User,
		Title:         schema.HistoryTitle(req.Title, req.Text),
		Text:          req.Text,
		Suggestions:   suggestions,
		AcceptedCount: schema.CountByStatus(req.Suggestions, schema.StatusAccepted),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func cloneRecord(r schema.HistoryRecord) schema.HistoryRecord {
	r.Suggestions = schema.CloneSuggestions(r.Suggestions)
	return r
}
