package schema

import "time"

// ChangelogEvent is the interface for all history changelog event types.
type ChangelogEvent interface {
	EventType() string
	EventID() string
	Timestamp() time.Time
}

// RecordCreated is written when a session is first persisted.
type RecordCreated struct {
	EventID_   string        `json:"event_id" yaml:"event_id"`
	Seq        int64         `json:"seq" yaml:"seq"`
	Record     HistoryRecord `json:"record" yaml:"record"`
	Timestamp_ time.Time     `json:"timestamp" yaml:"timestamp"`
}

func (e *RecordCreated) EventType() string    { return "RecordCreated" }
func (e *RecordCreated) EventID() string      { return e.EventID_ }
func (e *RecordCreated) Timestamp() time.Time { return e.Timestamp_ }

// RecordUpdated is written when a persisted session's suggestions change.
type RecordUpdated struct {
	EventID_      string       `json:"event_id" yaml:"event_id"`
	Seq           int64        `json:"seq" yaml:"seq"`
	RecordID      string       `json:"record_id" yaml:"record_id"`
	Suggestions   []Suggestion `json:"suggestions" yaml:"suggestions"`
	AcceptedCount int          `json:"accepted_count" yaml:"accepted_count"`
	Timestamp_    time.Time    `json:"timestamp" yaml:"timestamp"`
}

func (e *RecordUpdated) EventType() string    { return "RecordUpdated" }
func (e *RecordUpdated) EventID() string      { return e.EventID_ }
func (e *RecordUpdated) Timestamp() time.Time { return e.Timestamp_ }
