//go:build unix

package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// maxAttempts bounds retries when the lock file is replaced between open and
// flock.
const maxAttempts = 5

func acquire(path string) (*os.File, bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, false, err
		}

		if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, true, nil
			}
			return nil, false, err
		}

		// A releasing holder unlinks the path before unlocking, so the inode we
		// locked may no longer be the one other processes will open.
		if linked(file, path) {
			return file, false, nil
		}
		_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}
	return nil, true, nil
}

// linked reports whether file is still the inode reachable at path.
func linked(file *os.File, path string) bool {
	held, err := file.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

func release(file *os.File) {
	_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
