package core

import (
	"slices"
	"sync"
)

// EventType names a session notification.
type EventType string

const (
	EventAnalysisCompleted  EventType = "analysis_completed"
	EventSuggestionsChanged EventType = "suggestions_changed"
	EventDocumentChanged    EventType = "document_changed"
	EventScrollRequested    EventType = "scroll_requested"
	EventNotice             EventType = "notice"
	EventStateChanged       EventType = "state_changed"
)

// Event is delivered to session observers.
type Event struct {
	Type EventType
	// SuggestionID is set for scroll requests; empty clears the selection.
	SuggestionID string
	// Message is set for notices.
	Message string
}

// observers is a subscriber list. Callbacks run on the emitting goroutine
// without any session lock held.
type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(Event))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.fns, id)
	}
}

func (o *observers) emit(events ...Event) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.fns))
	for id := range o.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
