package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dal/pkg/schema"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "history"))
	s.now = fakeClock()
	return s
}

func TestFileStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return newTestFileStore(t) })
}

func TestFileStore_Changelog(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	rec, err := s.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "ann@example.com", rec.ID, nil, 3))

	data, err := os.ReadFile(filepath.Join(s.dir, changelogFile))
	require.NoError(t, err)

	var log changelog
	require.NoError(t, yaml.Unmarshal(data, &log))
	require.Len(t, log.Events, 2)
	assert.Equal(t, "RecordCreated", log.Events[0].EventType)
	assert.Equal(t, int64(1), log.Events[0].Seq)
	assert.Equal(t, "RecordUpdated", log.Events[1].EventType)
	assert.Equal(t, rec.ID, log.Events[1].RecordID)
	assert.Equal(t, int64(2), log.LastSeq)

	_, err = os.Stat(s.lockPath)
	assert.True(t, os.IsNotExist(err), "lock file should be released")
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "history")

	first := NewFileStore(dir)
	rec, err := first.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
	require.NoError(t, err)

	second := NewFileStore(dir)
	got, err := second.Get(ctx, "ann@example.com", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Text, got.Text)
}

func TestFileStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)
	s.snapshotInterval = 3

	var last schema.HistoryRecord
	for range 4 {
		rec, err := s.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
		require.NoError(t, err)
		last = rec
	}
	require.NoError(t, s.Update(ctx, "ann@example.com", last.ID, nil, 7))

	_, err := os.Stat(filepath.Join(s.dir, snapshotName(3)))
	require.NoError(t, err, "snapshot after third event")

	st, snapSeq, err := loadSnapshot(s.dir)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snapSeq)
	assert.Len(t, st.records, 3)

	list, err := s.List(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, last.ID, list[0].ID)
	assert.Equal(t, 7, list[0].AcceptedCount)
}

func TestFileStore_CorruptSnapshotFallsBackToReplay(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)
	s.snapshotInterval = 1

	rec, err := s.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, snapshotName(1)), []byte("{not yaml"), 0o644))

	got, err := s.Get(ctx, "ann@example.com", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestFileStore_FailedUpdateLeavesDirectoryUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(s.dir, changelogFile))
	require.NoError(t, err)

	err = s.Update(ctx, "ann@example.com", "HIST-missing", nil, 1)
	require.ErrorIs(t, err, ErrNotFound)

	after, err := os.ReadFile(filepath.Join(s.dir, changelogFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_LockedByAnotherWriter(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)
	s.lockTimeout = 0
	require.NoError(t, os.MkdirAll(filepath.Dir(s.dir), 0o755))

	other := newFileLock(s.lockPath, "other")
	require.NoError(t, other.Acquire())
	defer other.Release()

	_, err := s.Save(ctx, historyRequest("ann@example.com", "some analysed text"))
	assert.ErrorIs(t, err, ErrLocked)
}
