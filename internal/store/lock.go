package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ownerFiles lists the lock files spreadsheet programs leave next to an
// open workbook: Office "~$name" (truncated for long names) and
// LibreOffice ".~lock.name#".
func ownerFiles(path string) []string {
	dir, base := filepath.Split(path)
	names := []string{"~$" + base, ".~lock." + base + "#"}
	if r := []rune(base); len(r) > 2 {
		names = append(names, "~$"+string(r[2:]))
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

// checkLock returns ErrLocked if another program appears to hold path.
func checkLock(path string) error {
	for _, owner := range ownerFiles(path) {
		if _, err := os.Stat(owner); err == nil {
			return ErrLocked
		}
	}
	return probeLock(path)
}

// classify maps OS-level failures onto store errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return ErrStoreNotFound
	case errors.Is(err, fs.ErrPermission), isLockError(err):
		return ErrLocked
	case strings.Contains(strings.ToLower(err.Error()), "being used by another process"):
		return ErrLocked
	default:
		return err
	}
}

// pathErr wraps err, classified, in a PathError.
func pathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	c := classify(err)
	if c == ErrLocked || c == ErrStoreNotFound {
		return &PathError{Op: op, Path: path, Err: c}
	}
	return &PathError{Op: op, Path: path, Err: err}
}
