//go:build unix

package store

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// probeLock tries a non-blocking exclusive flock on path.
func probeLock(path string) error {
	f, err := os.Open(path)
	if err != nil {
		// Missing or unreadable files are reported by the caller's open.
		return nil
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if isLockError(err) {
			return ErrLocked
		}
		return nil
	}
	_ = unix.Flock(fd, unix.LOCK_UN)
	return nil
}

func isLockError(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}
