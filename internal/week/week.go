// Package week locates the per-week data folders.
//
// A weeks root holds one directory per week:
//
//	<root>/semaine_<n>/
//	    matrix.xlsx       roster
//	    personnel.json    personnel registry
//	    <school>.xlsx     one workbook per catalog school
package week

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ecoles/roster/internal/catalog"
)

const (
	// DirPrefix is the folder name prefix of a week.
	DirPrefix = "semaine_"

	// RosterFile is the roster workbook of a week.
	RosterFile = "matrix.xlsx"

	// PersonnelFile is the personnel registry of a week.
	PersonnelFile = "personnel.json"
)

// ErrWeekNotFound is returned when a week folder does not exist.
var ErrWeekNotFound = errors.New("week not found")

// Week is one week folder.
type Week struct {
	Number int
	Dir    string
}

// Dir returns the folder of week n under root.
func Dir(root string, n int) string {
	return filepath.Join(root, DirPrefix+strconv.Itoa(n))
}

// Open returns week n under root. With n <= 0 it returns the latest week.
func Open(root string, n int) (*Week, error) {
	if n <= 0 {
		return Latest(root)
	}
	dir := Dir(root, n)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrWeekNotFound, dir)
	}
	return &Week{Number: n, Dir: dir}, nil
}

// Create makes the folder of week n under root if needed.
func Create(root string, n int) (*Week, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid week number %d", n)
	}
	dir := Dir(root, n)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create week directory: %w", err)
	}
	return &Week{Number: n, Dir: dir}, nil
}

// List returns the weeks under root sorted by number. Folders whose suffix
// is not a positive number are ignored.
func List(root string) ([]*Week, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read weeks root: %w", err)
	}
	var weeks []*Week
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), DirPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), DirPrefix))
		if err != nil || n <= 0 {
			continue
		}
		weeks = append(weeks, &Week{Number: n, Dir: filepath.Join(root, e.Name())})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Number < weeks[j].Number })
	return weeks, nil
}

// Latest returns the highest-numbered week under root.
func Latest(root string) (*Week, error) {
	weeks, err := List(root)
	if err != nil {
		return nil, err
	}
	if len(weeks) == 0 {
		return nil, fmt.Errorf("%w: no %s* folder in %s", ErrWeekNotFound, DirPrefix, root)
	}
	return weeks[len(weeks)-1], nil
}

// Name is the folder name, e.g. "semaine_3".
func (w *Week) Name() string {
	return filepath.Base(w.Dir)
}

// RosterPath returns the roster workbook path.
func (w *Week) RosterPath() string {
	return filepath.Join(w.Dir, RosterFile)
}

// PersonnelPath returns the personnel registry path.
func (w *Week) PersonnelPath() string {
	return filepath.Join(w.Dir, PersonnelFile)
}

// SchoolPath returns the workbook path of s.
func (w *Week) SchoolPath(s catalog.School) string {
	return filepath.Join(w.Dir, s.File)
}
