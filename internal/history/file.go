package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"dal/pkg/schema"
)

const lockPoll = 50 * time.Millisecond

// FileStore keeps history as a YAML changelog of RecordCreated and
// RecordUpdated events with periodic snapshots. Every write is a
// copy-on-write transaction of the data directory under a file lock, so
// several processes may share one directory.
type FileStore struct {
	mu               sync.Mutex
	dir              string
	lockPath         string
	snapshotInterval int
	lockTimeout      time.Duration
	now              func() time.Time
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	dir = filepath.Clean(dir)
	return &FileStore{
		dir:              dir,
		lockPath:         dir + ".lock",
		snapshotInterval: defaultSnapshotInterval,
		lockTimeout:      2 * time.Second,
		now:              time.Now,
	}
}

func (s *FileStore) Save(ctx context.Context, req schema.HistoryRequest) (schema.HistoryRecord, error) {
	id, err := schema.NewHistoryID()
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	rec, err := newRecord(req, id, s.now())
	if err != nil {
		return schema.HistoryRecord{}, err
	}

	err = s.write(ctx, func(seq int64, eventID string) schema.ChangelogEvent {
		return &schema.RecordCreated{EventID_: eventID, Seq: seq, Record: rec, Timestamp_: rec.CreatedAt}
	})
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	return cloneRecord(rec), nil
}

func (s *FileStore) Update(ctx context.Context, user, id string, suggestions []schema.Suggestion, acceptedCount int) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	now := s.now()
	return s.write(ctx, func(seq int64, eventID string) schema.ChangelogEvent {
		return &schema.RecordUpdated{
			EventID_:      eventID,
			Seq:           seq,
			RecordID:      id,
			Suggestions:   suggestions,
			AcceptedCount: acceptedCount,
			Timestamp_:    now,
		}
	})
}

func (s *FileStore) List(ctx context.Context, user string) ([]schema.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, _, err := loadState(s.dir)
	if err != nil {
		return nil, err
	}
	owned := st.owned(user)
	out := make([]schema.HistoryRecord, 0, len(owned))
	for _, sr := range owned {
		out = append(out, cloneRecord(sr.Record))
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, user, id string) (schema.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, _, err := loadState(s.dir)
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	sr, ok := st.records[id]
	if !ok || sr.Record.User != user {
		return schema.HistoryRecord{}, ErrNotFound
	}
	return cloneRecord(sr.Record), nil
}

func (s *FileStore) Close() error { return nil }

// write appends one event built by build. The event is applied to the
// current state before anything is committed, so an event that does not
// apply leaves the directory untouched.
func (s *FileStore) write(ctx context.Context, build func(seq int64, eventID string) schema.ChangelogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.dir), 0o755); err != nil {
		return fmt.Errorf("create history parent directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	lock := newFileLock(s.lockPath, "dal")
	if err := lock.AcquireWait(lockCtx, lockPoll); err != nil {
		return fmt.Errorf("acquire history lock: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to remove history lock file", "error", err)
		}
	}()

	tx := newDirTx(s.dir)
	if err := tx.Begin(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	abort := func(err error) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("History rollback failed", "error", rbErr)
		}
		return err
	}

	st, log, err := loadState(tx.Dir())
	if err != nil {
		return abort(err)
	}

	eventID, err := schema.NewEventID()
	if err != nil {
		return abort(err)
	}
	event := build(log.LastSeq+1, eventID)
	if err := st.apply(event); err != nil {
		return abort(err)
	}

	entry, err := encodeEvent(event)
	if err != nil {
		return abort(err)
	}
	log.Events = append(log.Events, entry)
	log.LastSeq = entry.Seq
	log.EventsSinceSnapshot++

	if log.EventsSinceSnapshot >= s.snapshotInterval {
		data, err := encodeSnapshot(st, log.LastSeq)
		if err != nil {
			return abort(fmt.Errorf("marshal snapshot: %w", err))
		}
		if err := tx.WriteFile(snapshotName(log.LastSeq), data); err != nil {
			return abort(fmt.Errorf("write snapshot: %w", err))
		}
		log.LastSnapshot = log.LastSeq
		log.EventsSinceSnapshot = 0
	}

	data, err := yaml.Marshal(log)
	if err != nil {
		return abort(fmt.Errorf("marshal changelog: %w", err))
	}
	if err := tx.WriteFile(changelogFile, data); err != nil {
		return abort(err)
	}
	if err := tx.Commit(); err != nil {
		return abort(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// loadState materializes dir: newest snapshot plus the events after it.
func loadState(dir string) (*state, *changelog, error) {
	log := &changelog{}
	data, err := os.ReadFile(filepath.Join(dir, changelogFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("read changelog: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, log); err != nil {
			return nil, nil, fmt.Errorf("parse changelog: %w", err)
		}
	}

	st, snapSeq, err := loadSnapshot(dir)
	if err != nil {
		return nil, nil, err
	}
	if err := st.replay(log.Events, snapSeq); err != nil {
		return nil, nil, fmt.Errorf("replay changelog: %w", err)
	}
	return st, log, nil
}
