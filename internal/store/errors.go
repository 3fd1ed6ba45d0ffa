package store

import (
	"errors"
	"fmt"
)

// Common errors returned by store operations.
//
// They are wrapped in a *PathError naming the file, and can be checked
// with errors.Is:
//
//	if errors.Is(err, store.ErrLocked) {
//	    // another program holds the workbook open
//	}
var (
	// ErrStoreNotFound is returned when an expected workbook or registry
	// file does not exist.
	ErrStoreNotFound = errors.New("store not found")

	// ErrLocked is returned when a file is held open by another process.
	ErrLocked = errors.New("file is locked by another process")

	// ErrSheetNotFound is returned when a workbook has no sheet for the
	// requested slot.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrEmptyWorkbook is returned when a workbook has no sheets.
	ErrEmptyWorkbook = errors.New("workbook has no sheets")
)

// PathError records the file and step an error happened on.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is likely to go away on its own,
// like a workbook left open in a spreadsheet program.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrLocked)
}

// IsNotFound returns true if a required store file is missing.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStoreNotFound)
}
