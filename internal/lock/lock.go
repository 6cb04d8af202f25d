// Package lock provides the advisory lock that keeps two sage runs from
// working on the same target directory at once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
)

// FileLock is an advisory lock on <target>/.sage.lock.
//
// FileLock is NOT safe for concurrent use; each run holds its own instance.
// On Unix it uses flock(2), so a crashed holder never leaves a stale lock
// behind. Elsewhere it falls back to exclusive file creation.
type FileLock struct {
	path string
	file *os.File
}

// New creates a lock for a target directory. It is not yet acquired.
func New(targetDir string) *FileLock {
	return &FileLock{path: config.LockPath(targetDir)}
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. If another run holds it the error
// has code LOCK_001.
func (l *FileLock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return serrors.IOWriteError(filepath.Dir(l.path), err)
	}

	file, held, err := acquire(l.path)
	if held {
		return serrors.LockHeld(l.path, l.HolderPID())
	}
	if err != nil {
		return serrors.IOWriteError(l.path, err)
	}

	// PID is informational only
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = fmt.Fprintf(file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))

	l.file = file
	return nil
}

// Release removes the lock file and frees the lock. Safe to call on an
// unacquired lock and more than once.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	// Unlinked while still locked; acquire re-checks the inode it locks.
	_ = os.Remove(l.path)
	release(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}

// HolderPID returns the PID recorded in the lock file, or 0 if unknown.
func (l *FileLock) HolderPID() int {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}

	var pid int
	if _, err := fmt.Sscanf(string(content), "pid=%d", &pid); err != nil {
		return 0
	}
	return pid
}
