package history

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// dirTx stages writes to a data directory in a full copy and swaps the copy
// in with two renames on commit. Readers never see a half-written changelog.
type dirTx struct {
	baseDir   string
	tempDir   string
	backupDir string
	committed bool
}

func newDirTx(baseDir string) *dirTx {
	stamp := time.Now().UnixNano()
	return &dirTx{
		baseDir:   baseDir,
		tempDir:   fmt.Sprintf("%s.tmp.%d", baseDir, stamp),
		backupDir: fmt.Sprintf("%s.backup.%d", baseDir, stamp),
	}
}

// Begin copies the data directory into the staging directory. A missing
// data directory starts an empty one.
func (tx *dirTx) Begin() error {
	if _, err := os.Stat(tx.baseDir); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(tx.tempDir, 0o755); err != nil {
				return fmt.Errorf("create staging directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("stat data directory: %w", err)
	}

	if err := copyDir(tx.baseDir, tx.tempDir); err != nil {
		_ = os.RemoveAll(tx.tempDir)
		return fmt.Errorf("copy data directory: %w", err)
	}
	return nil
}

// Dir is the staging directory reads and writes go to.
func (tx *dirTx) Dir() string {
	return tx.tempDir
}

func (tx *dirTx) WriteFile(rel string, content []byte) error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}
	full := filepath.Join(tx.tempDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (tx *dirTx) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(tx.tempDir, rel))
}

// Commit swaps the staging directory in. On a failed second rename the
// original directory is restored.
func (tx *dirTx) Commit() error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}

	baseExists := true
	if _, err := os.Stat(tx.baseDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat data directory: %w", err)
		}
		baseExists = false
	}

	if !baseExists {
		if err := os.Rename(tx.tempDir, tx.baseDir); err != nil {
			return fmt.Errorf("commit new data directory: %w", err)
		}
		tx.committed = true
		return nil
	}

	if err := os.Rename(tx.baseDir, tx.backupDir); err != nil {
		return fmt.Errorf("back up data directory: %w", err)
	}
	if err := os.Rename(tx.tempDir, tx.baseDir); err != nil {
		if rbErr := os.Rename(tx.backupDir, tx.baseDir); rbErr != nil {
			return fmt.Errorf("commit failed and restore failed: commit error: %w, restore error: %v", err, rbErr)
		}
		return fmt.Errorf("commit data directory (restored): %w", err)
	}
	if err := os.RemoveAll(tx.backupDir); err != nil {
		slog.Warn("Failed to remove history backup", "dir", tx.backupDir, "error", err)
	}

	tx.committed = true
	return nil
}

// Rollback discards the staging directory.
func (tx *dirTx) Rollback() error {
	if tx.committed {
		return fmt.Errorf("cannot roll back a committed transaction")
	}
	if err := os.RemoveAll(tx.tempDir); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// copyDir copies a tree with real file copies. Hard links would share
// inodes with the live directory and leak staged writes into it.
func copyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(from, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	return out.Close()
}
