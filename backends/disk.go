package backends

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/talkify/talkify/pkg/locking"
)

// fileFormatVersion prefixes every data file so a future layout change can
// ignore files written by older builds.
const fileFormatVersion = "v1-"

const lockRetryDelay = 5 * time.Millisecond

// Disk stores one file per key under a directory. It plays the role of the
// device key-value store: values survive restarts and every write replaces
// the previous file atomically.
type Disk struct {
	dir    string // Absolute path to cache directory
	locks  locking.Group
	logger *slog.Logger
	closed atomic.Bool
}

// NewDisk creates the cache directory if needed and returns a backend rooted
// there. locks serializes writers inside this process; a flock on a sidecar
// file serializes writers across processes.
func NewDisk(dir string, locks locking.Group, logger *slog.Logger) (*Disk, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Convert to absolute path once at initialization
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if locks == nil {
		locks = locking.NewMemLock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Disk{
		dir:    absDir,
		locks:  locks,
		logger: logger,
	}, nil
}

// Put atomically replaces the file for key with value.
func (d *Disk) Put(ctx context.Context, key string, value []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := d.keyPath(key)

	return d.locks.DoWithLock(key, func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create subdirectory: %w", err)
		}

		fileLock := flock.New(path + ".lock")
		locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
		if !locked {
			return fmt.Errorf("failed to lock %s", key)
		}
		defer func() {
			if err := fileLock.Unlock(); err != nil {
				d.logger.Warn("failed to release cache file lock", "key", key, "error", err)
			}
		}()

		return writeAtomic(path, value)
	})
}

// writeAtomic writes to a temp file in the destination directory and renames
// it over path, so readers never observe a partial envelope.
func writeAtomic(path string, value []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	_, err = tmpFile.Write(value)
	closeErr := tmpFile.Close()
	if err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Get reads the file for key. A missing file is a miss, not an error.
func (d *Disk) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if d.closed.Load() {
		return nil, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(d.keyPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, true, nil
}

// Delete removes the files for keys. Every key is attempted; failures are
// joined into the returned error.
func (d *Disk) Delete(ctx context.Context, keys ...string) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		path := d.keyPath(key)
		err := d.locks.DoWithLock(key, func() error {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", key, err)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes every data file under the cache directory. Lock files are
// left in place because another process may hold them.
func (d *Disk) Clear(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var errs []error
	walkErr := filepath.WalkDir(d.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove cache file", "path", path, "error", err)
			errs = append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return errors.Join(errs...)
}

// Close marks the backend closed. Files stay on disk for the next run.
func (d *Disk) Close() error {
	d.closed.Store(true)
	return nil
}

// Dir returns the absolute cache directory.
func (d *Disk) Dir() string {
	return d.dir
}

// keyPath converts a cache key to a file path. Keys contain characters such
// as '@' that are awkward in file names, so the path is derived from the
// key's sha256; files are spread over 256 subdirectories (00-ff) by the first
// byte, similar to Go's build cache structure.
func (d *Disk) keyPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	hexKey := hex.EncodeToString(sum[:])
	return filepath.Join(d.dir, hexKey[:2], fileFormatVersion+hexKey)
}

var _ Backend = (*Disk)(nil)
