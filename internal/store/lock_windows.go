//go:build windows

package store

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// probeLock opens path for writing; Excel holds workbooks with a share
// mode that refuses it.
func probeLock(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if isLockError(err) {
			return ErrLocked
		}
		return nil
	}
	return f.Close()
}

func isLockError(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
