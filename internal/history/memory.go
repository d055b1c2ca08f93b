package history

import (
	"context"
	"sync"
	"time"

	"dal/pkg/schema"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]schema.HistoryRecord // newest first
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]schema.HistoryRecord),
		now:    time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, req schema.HistoryRequest) (schema.HistoryRecord, error) {
	id, err := schema.NewHistoryID()
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	rec, err := newRecord(req, id, s.now())
	if err != nil {
		return schema.HistoryRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]schema.HistoryRecord{rec}, s.byUser[req.User]...)
	if len(records) > schema.HistoryLimit {
		records = records[:schema.HistoryLimit]
	}
	s.byUser[req.User] = records
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Update(ctx context.Context, user, id string, suggestions []schema.Suggestion, acceptedCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[user]
	for i := range records {
		if records[i].ID == id {
			records[i].Suggestions = schema.CloneSuggestions(suggestions)
			records[i].AcceptedCount = acceptedCount
			records[i].UpdatedAt = s.now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, user string) ([]schema.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schema.HistoryRecord, 0, len(s.byUser[user]))
	for _, r := range s.byUser[user] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, user, id string) (schema.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.byUser[user] {
		if r.ID == id {
			return cloneRecord(r), nil
		}
	}
	return schema.HistoryRecord{}, ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }
