package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultSnapshotInterval = 100
	snapshotDir             = "snapshots"
)

// snapshot is the full materialized state as of LastSeq.
type snapshot struct {
	LastSeq int64         `yaml:"last_seq"`
	Records []stateRecord `yaml:"records"`
}

func snapshotName(seq int64) string {
	return filepath.Join(snapshotDir, fmt.Sprintf("%012d.yaml", seq))
}

func encodeSnapshot(st *state, seq int64) ([]byte, error) {
	snap := snapshot{LastSeq: seq, Records: make([]stateRecord, 0, len(st.records))}
	for _, sr := range st.records {
		snap.Records = append(snap.Records, sr)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].Seq < snap.Records[j].Seq })
	return yaml.Marshal(snap)
}

// loadSnapshot reads the most recent snapshot in dir. It returns an empty
// state and seq 0 when there is none or the newest one is unreadable, so the
// caller falls back to a full replay.
func loadSnapshot(dir string) (*state, int64, error) {
	entries, err := os.ReadDir(filepath.Join(dir, snapshotDir))
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), 0, nil
		}
		return nil, 0, fmt.Errorf("read snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return newState(), 0, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	data, err := os.ReadFile(filepath.Join(dir, snapshotDir, names[0]))
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return newState(), 0, nil
	}

	st := newState()
	for _, sr := range snap.Records {
		st.records[sr.Record.ID] = sr
	}
	return st, snap.LastSeq, nil
}
