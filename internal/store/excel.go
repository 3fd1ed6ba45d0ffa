package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize creates in a new file.
const defaultSheet = "Sheet1"

// Excel is the Backend for .xlsx workbooks.
type Excel struct {
	Logger *log.Logger
}

var _ Backend = (*Excel)(nil)

// NewExcel returns an Excel backend. A nil logger logs to stderr.
func NewExcel(logger *log.Logger) *Excel {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Excel{Logger: logger}
}

func (x *Excel) logf(format string, args ...interface{}) {
	if x.Logger != nil {
		x.Logger.Printf(format, args...)
	}
}

// Open implements Backend.
func (x *Excel) Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, pathErr("open", path, err)
	}
	if err := checkLock(path); err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, pathErr("open", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logf("WARNING: failed to close %s: %v", path, err)
		}
	}()

	wb := &Workbook{Path: path}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, pathErr("read", path, fmt.Errorf("sheet %q: %w", name, err))
		}
		wb.Sheets = append(wb.Sheets, &Sheet{Name: name, Rows: rows, stored: true})
	}
	if len(wb.Sheets) == 0 {
		return nil, &PathError{Op: "open", Path: path, Err: ErrEmptyWorkbook}
	}
	return wb, nil
}

// Save implements Backend. Of an existing file, only the sheets that are
// modified or were not read from it are rewritten; a new file gets every
// sheet.
func (x *Excel) Save(wb *Workbook) error {
	path := wb.Path

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return pathErr("save", path, statErr)
	}

	var f *excelize.File
	if exists {
		if err := checkLock(path); err != nil {
			return &PathError{Op: "save", Path: path, Err: err}
		}
		opened, err := excelize.OpenFile(path)
		if err != nil {
			return pathErr("save", path, err)
		}
		f = opened
	} else {
		f = excelize.NewFile()
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logf("WARNING: failed to close %s: %v", path, err)
		}
	}()

	for i, sheet := range wb.Sheets {
		if exists && !sheet.Modified() {
			continue
		}
		if err := ensureSheet(f, sheet.Name, i == 0 && !exists); err != nil {
			return pathErr("save", path, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return pathErr("save", path, fmt.Errorf("sheet %q: %w", sheet.Name, err))
		}
	}

	var err error
	if exists {
		err = f.Save()
	} else {
		err = f.SaveAs(path)
	}
	if err != nil {
		return pathErr("save", path, err)
	}

	for _, sheet := range wb.Sheets {
		sheet.modified = false
		sheet.stored = true
	}
	x.logf("Saved %s", path)
	return nil
}

// ensureSheet creates name in f. The first sheet of a new file takes over
// the default sheet.
func ensureSheet(f *excelize.File, name string, first bool) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return nil
	}
	if first && name != defaultSheet {
		return f.SetSheetName(defaultSheet, name)
	}
	_, err = f.NewSheet(name)
	return err
}

// writeSheet overwrites the cell values of sheet. Rows beyond the new
// length are removed and stale trailing cells blanked.
func writeSheet(f *excelize.File, sheet *Sheet) error {
	old, err := f.GetRows(sheet.Name)
	if err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		width := len(row)
		if i < len(old) && len(old[i]) > width {
			width = len(old[i])
		}
		values := make([]interface{}, width)
		for j := range values {
			if j < len(row) {
				values[j] = cellValue(row[j])
			} else {
				values[j] = ""
			}
		}
		if len(values) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
	}

	for r := len(old); r > len(sheet.Rows); r-- {
		if err := f.RemoveRow(sheet.Name, r); err != nil {
			return err
		}
	}
	return nil
}

// cellValue writes canonical integers and decimals as numbers so ages and
// counts stay numeric in the spreadsheet.
func cellValue(s string) interface{} {
	if s == "" || strings.ContainsAny(s, "eE+ ") {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(v, 'f', -1, 64) == s {
		return v
	}
	return s
}
