// Package lock provides file-based locking of vongform output directories.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock guards a directory with a lock file placed next to it, so the lock
// file never ends up inside the chart being written.
type Lock struct {
	target string
	path   string
	file   *os.File
}

// New creates a lock for the target directory. The lock file is
// "<parent>/.<name>.lock".
func New(target string) *Lock {
	clean := filepath.Clean(target)
	return &Lock{
		target: clean,
		path:   filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".lock"),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
// It returns an error wrapping ErrLocked if the lock is already held.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		l.file = nil
		if errors.Is(err, ErrLocked) {
			return fmt.Errorf("another vongform run is writing %s: %w", l.target, err)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID for debugging stale locks.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := unlockFile(l.file); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}

// WithLock runs fn while holding the lock on target.
func WithLock(target string, fn func() error) error {
	lock := New(target)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
