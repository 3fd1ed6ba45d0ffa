// Package store provides typed access to the three stores of a week: the
// roster workbook, the per-school class workbooks and the personnel
// registry.
//
// Workbooks are read whole into a Workbook value through a Backend and
// written back whole. Stores track whether they were modified so that a
// no-op operation never touches the file on disk.
package store

import (
	"strings"
)

// Sheet is one tab of a workbook. Rows[0] is the header row when present.
type Sheet struct {
	Name string
	Rows [][]string

	modified bool
	stored   bool
}

// Modified reports whether the sheet changed since it was read. A sheet
// built in memory rather than read by Backend.Open is always modified.
func (s *Sheet) Modified() bool {
	return s.modified || !s.stored
}

// Header returns the first row, or nil for an empty sheet.
func (s *Sheet) Header() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Set writes value at (row, col), growing the sheet as needed. It reports
// whether the stored value changed.
func (s *Sheet) Set(row, col int, value string) bool {
	for len(s.Rows) <= row {
		s.Rows = append(s.Rows, nil)
	}
	for len(s.Rows[row]) <= col {
		s.Rows[row] = append(s.Rows[row], "")
	}
	if s.Rows[row][col] == value {
		return false
	}
	s.Rows[row][col] = value
	s.modified = true
	return true
}

// Cell returns the value at (row, col), or "" outside the sheet.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || col < 0 || row >= len(s.Rows) || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// RemoveRow deletes a row, shifting the following rows up.
func (s *Sheet) RemoveRow(row int) {
	if row < 0 || row >= len(s.Rows) {
		return
	}
	s.Rows = append(s.Rows[:row], s.Rows[row+1:]...)
	s.modified = true
}

// AppendRow adds a row at the end of the sheet and returns its index.
func (s *Sheet) AppendRow(cells ...string) int {
	s.Rows = append(s.Rows, cells)
	s.modified = true
	return len(s.Rows) - 1
}

// Workbook is a tabular file held in memory.
type Workbook struct {
	Path   string
	Sheets []*Sheet
}

// Sheet returns the sheet with the given name, or nil.
func (wb *Workbook) Sheet(name string) *Sheet {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Backend reads and writes workbooks.
type Backend interface {
	// Open reads every sheet of the file at path.
	Open(path string) (*Workbook, error)
	// Save writes wb back to wb.Path, replacing its cell values. Sheets
	// read by Open and left unchanged are not rewritten; every other sheet
	// is, including over an existing file.
	Save(wb *Workbook) error
}

// Empty-value tokens left behind by earlier exports.
var emptyTokens = map[string]bool{"": true, "nan": true, "none": true}

// Clean trims a cell and maps empty-value tokens to "".
func Clean(v string) string {
	v = strings.TrimSpace(v)
	if emptyTokens[strings.ToLower(v)] {
		return ""
	}
	return v
}

// Modified reports whether any sheet changed since the workbook was read.
func (wb *Workbook) Modified() bool {
	for _, s := range wb.Sheets {
		if s.Modified() {
			return true
		}
	}
	return false
}
