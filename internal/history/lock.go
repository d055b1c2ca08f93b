package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ErrLocked is returned when another live process holds the data lock.
var ErrLocked = errors.New("history store locked")

const staleLockAge = 30 * time.Minute

// lockInfo is the metadata written into the lock file.
type lockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// fileLock is an exclusive flock on a sidecar file, shared by every
// process writing the same data directory.
type fileLock struct {
	path  string
	owner string
	file  *os.File
}

func newFileLock(path, owner string) *fileLock {
	return &fileLock{path: path, owner: owner}
}

// Acquire takes the lock without blocking. Locks left by dead processes or
// older than staleLockAge are taken over.
func (l *fileLock) Acquire() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()

		existing, readErr := l.read()
		if readErr == nil && existing.stale() {
			slog.Warn("Taking over stale history lock", "pid", existing.PID, "owner", existing.Owner)
			_ = os.Remove(l.path)
			return l.Acquire()
		}
		if readErr == nil {
			age := time.Since(existing.Timestamp).Round(time.Second)
			return fmt.Errorf("%w by %s (PID %d, %v ago)", ErrLocked, existing.Owner, existing.PID, age)
		}
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	l.file = file

	hostname, _ := os.Hostname()
	data, _ := json.Marshal(lockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		Timestamp: time.Now(),
	})
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	return nil
}

// AcquireWait retries Acquire until ctx is done.
func (l *fileLock) AcquireWait(ctx context.Context, poll time.Duration) error {
	for {
		err := l.Acquire()
		if err == nil || !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(poll):
		}
	}
}

// Release drops the lock and removes the lock file.
func (l *fileLock) Release() error {
	if l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Failed to release history lock", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Warn("Failed to close history lock file", "error", err)
	}
	l.file = nil
	return os.Remove(l.path)
}

func (l *fileLock) read() (*lockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (i *lockInfo) stale() bool {
	process, err := os.FindProcess(i.PID)
	if err != nil {
		return true
	}
	// FindProcess always succeeds on Unix; signal 0 probes liveness.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true
	}
	return time.Since(i.Timestamp) > staleLockAge
}
