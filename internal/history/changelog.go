package history

import (
	"fmt"
	"sort"
	"time"

	"dal/pkg/schema"
)

const changelogFile = "changelog.yaml"

// changelog is the on-disk event log.
type changelog struct {
	Events              []eventEntry `yaml:"events"`
	LastSeq             int64        `yaml:"last_seq"`
	LastSnapshot        int64        `yaml:"last_snapshot"`
	EventsSinceSnapshot int          `yaml:"events_since_snapshot"`
}

// eventEntry is the serialized form of a schema.ChangelogEvent.
type eventEntry struct {
	EventType     string                `yaml:"event_type"`
	EventID       string                `yaml:"event_id"`
	Seq           int64                 `yaml:"seq"`
	Timestamp     time.Time             `yaml:"timestamp"`
	Record        *schema.HistoryRecord `yaml:"record,omitempty"`
	RecordID      string                `yaml:"record_id,omitempty"`
	Suggestions   []schema.Suggestion   `yaml:"suggestions,omitempty"`
	AcceptedCount int                   `yaml:"accepted_count,omitempty"`
}

func encodeEvent(event schema.ChangelogEvent) (eventEntry, error) {
	entry := eventEntry{
		EventType: event.EventType(),
		EventID:   event.EventID(),
		Timestamp: event.Timestamp(),
	}
	switch e := event.(type) {
	case *schema.RecordCreated:
		rec := cloneRecord(e.Record)
		entry.Seq = e.Seq
		entry.Record = &rec
	case *schema.RecordUpdated:
		entry.Seq = e.Seq
		entry.RecordID = e.RecordID
		entry.Suggestions = schema.CloneSuggestions(e.Suggestions)
		entry.AcceptedCount = e.AcceptedCount
	default:
		return eventEntry{}, fmt.Errorf("unknown event type: %T", event)
	}
	return entry, nil
}

func decodeEvent(entry eventEntry) (schema.ChangelogEvent, error) {
	switch entry.EventType {
	case "RecordCreated":
		if entry.Record == nil {
			return nil, fmt.Errorf("event %s: missing record", entry.EventID)
		}
		return &schema.RecordCreated{
			EventID_:   entry.EventID,
			Seq:        entry.Seq,
			Record:     *entry.Record,
			Timestamp_: entry.Timestamp,
		}, nil
	case "RecordUpdated":
		return &schema.RecordUpdated{
			EventID_:      entry.EventID,
			Seq:           entry.Seq,
			RecordID:      entry.RecordID,
			Suggestions:   entry.Suggestions,
			AcceptedCount: entry.AcceptedCount,
			Timestamp_:    entry.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("event %s: unknown event type %q", entry.EventID, entry.EventType)
	}
}

// state is the materialized view of the changelog.
type state struct {
	records map[string]stateRecord
}

type stateRecord struct {
	Seq    int64                `yaml:"seq"`
	Record schema.HistoryRecord `yaml:"record"`
}

func newState() *state {
	return &state{records: make(map[string]stateRecord)}
}

func (s *state) apply(event schema.ChangelogEvent) error {
	switch e := event.(type) {
	case *schema.RecordCreated:
		if _, ok := s.records[e.Record.ID]; ok {
			return fmt.Errorf("record %s already exists", e.Record.ID)
		}
		s.records[e.Record.ID] = stateRecord{Seq: e.Seq, Record: cloneRecord(e.Record)}
		s.prune(e.Record.User)
	case *schema.RecordUpdated:
		sr, ok := s.records[e.RecordID]
		if !ok {
			return fmt.Errorf("record %s: %w", e.RecordID, ErrNotFound)
		}
		sr.Record.Suggestions = schema.CloneSuggestions(e.Suggestions)
		sr.Record.AcceptedCount = e.AcceptedCount
		sr.Record.UpdatedAt = e.Timestamp_
		s.records[e.RecordID] = sr
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}
	return nil
}

// prune drops the user's oldest records beyond the history limit.
func (s *state) prune(user string) {
	owned := s.owned(user)
	for _, sr := range owned[min(len(owned), schema.HistoryLimit):] {
		delete(s.records, sr.Record.ID)
	}
}

// owned returns the user's records, newest first.
func (s *state) owned(user string) []stateRecord {
	var out []stateRecord
	for _, sr := range s.records {
		if sr.Record.User == user {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

// replay applies entries newer than afterSeq in sequence order.
func (s *state) replay(entries []eventEntry, afterSeq int64) error {
	sorted := make([]eventEntry, 0, len(entries))
	for _, e := range entries {
		if e.Seq > afterSeq {
			sorted = append(sorted, e)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, entry := range sorted {
		event, err := decodeEvent(entry)
		if err != nil {
			return err
		}
		if err := s.apply(event); err != nil {
			return fmt.Errorf("apply event %s: %w", entry.EventID, err)
		}
	}
	return nil
}
