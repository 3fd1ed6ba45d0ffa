package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ecoles/roster/internal/catalog"
)

var (
	// ErrInvalidClassName is returned for an empty or purely numeric class
	// name.
	ErrInvalidClassName = errors.New("invalid class name")

	// ErrUnknownSchool is returned when a school is not in the catalog.
	ErrUnknownSchool = catalog.ErrUnknownSchool

	// ErrEmptySource is returned when an import source has no student rows.
	ErrEmptySource = errors.New("source roster has no students")

	// ErrUnknownField is returned for an import field outside level, school,
	// slot and class.
	ErrUnknownField = errors.New("unknown import field")
)

// StepError reports a multi-store operation that failed partway. The steps
// in Done were saved and are not rolled back.
type StepError struct {
	Op   string
	Step string
	Done []string
	Err  error
}

func (e *StepError) Error() string {
	if len(e.Done) == 0 {
		return fmt.Sprintf("%s: step %s failed: %v", e.Op, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: step %s failed after %s: %v", e.Op, e.Step, strings.Join(e.Done, ", "), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Partial reports whether some steps were saved before the failure.
func (e *StepError) Partial() bool {
	return len(e.Done) > 0
}

// IsPartial reports whether err is a StepError with completed steps.
func IsPartial(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Partial()
}

// steps runs the save phase of a multi-store operation.
type steps struct {
	op   string
	done []string
}

func (p *steps) run(name string, fn func() error) error {
	if err := fn(); err != nil {
		return &StepError{Op: p.op, Step: name, Done: append([]string(nil), p.done...), Err: err}
	}
	p.done = append(p.done, name)
	return nil
}
