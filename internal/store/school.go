package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
)

// Unspecified is the intervenant cell of a class without staff.
const Unspecified = "Non spécifié"

var (
	// ErrClassNotFound is returned when no slot sheet lists the class.
	ErrClassNotFound = errors.New("class not found")

	// ErrClassExists is returned when a class name is already used in a slot.
	ErrClassExists = errors.New("class already exists")
)

var listSeparators = regexp.MustCompile(`[;,|\n\r]+`)

// ParseStudentList splits a student-list cell into names.
func ParseStudentList(cell string) []string {
	cell = Clean(cell)
	if cell == "" || strings.HasPrefix(strings.ToLower(cell), "liste des élèves") {
		return nil
	}
	var out []string
	for _, part := range listSeparators.Split(cell, -1) {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// FormatStudentList joins names sorted, the way the cell is written back.
func FormatStudentList(names []string) string {
	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return match.Fold(sorted[i]) < match.Fold(sorted[j])
	})
	return strings.Join(sorted, ", ")
}

// ClassRecord is one class row of a slot sheet.
type ClassRecord struct {
	School   string
	Sheet    string
	Slot     string
	Role     string
	Name     string
	Level    string
	Teacher  string
	Animator string
	Students []string
}

type classSheet struct {
	sheet *Sheet
	cols  *schema.Mapping
	err   error
}

func (cs *classSheet) cell(row int, f schema.Field) string {
	if cs.cols == nil {
		return ""
	}
	return Clean(cs.cols.Get(cs.sheet.Rows[row], f))
}

func (cs *classSheet) set(row int, f schema.Field, value string) bool {
	col := cs.cols.Column(f)
	if col == schema.Absent {
		if value == "" {
			return false
		}
		header, idx := cs.cols.Ensure(append([]string(nil), cs.sheet.Header()...), f)
		cs.sheet.Set(0, idx, header[idx])
		col = idx
	}
	if Clean(cs.sheet.Cell(row, col)) == value {
		return false
	}
	return cs.sheet.Set(row, col, value)
}

// SchoolStore is the workbook of one school: one sheet per slot.
type SchoolStore struct {
	Name   string
	book   *Workbook
	sheets []*classSheet
}

// LoadSchool reads the workbook at path for the school called name. A
// sheet whose header lacks a student-list column is kept but unusable; the
// error surfaces only when an operation targets it.
func LoadSchool(b Backend, name, path string) (*SchoolStore, error) {
	wb, err := b.Open(path)
	if err != nil {
		return nil, err
	}
	s := &SchoolStore{Name: name, book: wb}
	for _, sheet := range wb.Sheets {
		s.sheets = append(s.sheets, newClassSheet(sheet))
	}
	return s, nil
}

func newClassSheet(sheet *Sheet) *classSheet {
	cs := &classSheet{sheet: sheet}
	if len(sheet.Header()) == 0 {
		return cs
	}
	cols, err := schema.Resolve(sheet.Header(), schema.ClassTable)
	if err != nil {
		cs.err = fmt.Errorf("sheet %q: %w", sheet.Name, err)
		return cs
	}
	cs.cols = cols
	return cs
}

// Path returns the workbook location.
func (s *SchoolStore) Path() string {
	return s.book.Path
}

// Slots returns the distinct cleaned slot labels in sheet order.
func (s *SchoolStore) Slots() []string {
	var out []string
	seen := make(map[string]bool)
	for _, cs := range s.sheets {
		key := schema.SlotKey(cs.sheet.Name)
		if !seen[key] {
			seen[key] = true
			out = append(out, schema.CleanSlot(cs.sheet.Name))
		}
	}
	return out
}

func (s *SchoolStore) record(cs *classSheet, row int) ClassRecord {
	teacher := cs.cell(row, schema.Intervenant)
	if strings.EqualFold(teacher, Unspecified) {
		teacher = ""
	}
	animator := cs.cell(row, schema.Animator)
	if strings.EqualFold(animator, Unspecified) {
		animator = ""
	}
	return ClassRecord{
		School:   s.Name,
		Sheet:    cs.sheet.Name,
		Slot:     schema.CleanSlot(cs.sheet.Name),
		Role:     schema.RoleFromSheet(cs.sheet.Name),
		Name:     cs.cell(row, schema.ClassName),
		Level:    cs.cell(row, schema.ClassLevel),
		Teacher:  teacher,
		Animator: animator,
		Students: ParseStudentList(cs.cell(row, schema.StudentList)),
	}
}

// Classes returns every class of every usable sheet.
func (s *SchoolStore) Classes() []ClassRecord {
	var out []ClassRecord
	for _, cs := range s.sheets {
		if cs.cols == nil {
			continue
		}
		for row := 1; row < len(cs.sheet.Rows); row++ {
			if rec := s.record(cs, row); rec.Name != "" {
				out = append(out, rec)
			}
		}
	}
	return out
}

func sameClass(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// slotSheets returns the sheets for slot. Sheets whose slot key equals the
// slot's are preferred; the looser SameSlot match is used only when none
// does. The error is set when no sheet matches or every matching sheet is
// unusable.
func (s *SchoolStore) slotSheets(slot string) ([]*classSheet, error) {
	key := schema.SlotKey(slot)
	same := func(name string) bool { return schema.SlotKey(name) == key }
	exact := false
	for _, cs := range s.sheets {
		if same(cs.sheet.Name) {
			exact = true
			break
		}
	}
	if !exact {
		same = func(name string) bool { return schema.SameSlot(name, slot) }
	}

	var usable []*classSheet
	var firstErr error
	for _, cs := range s.sheets {
		if !same(cs.sheet.Name) {
			continue
		}
		if cs.err != nil {
			if firstErr == nil {
				firstErr = cs.err
			}
			continue
		}
		usable = append(usable, cs)
	}
	if len(usable) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: %s has no sheet for slot %q", ErrSheetNotFound, s.Name, slot)
	}
	return usable, nil
}

func (s *SchoolStore) locate(slot, class string) (*classSheet, int, error) {
	sheets, err := s.slotSheets(slot)
	if err != nil {
		return nil, 0, err
	}
	for _, cs := range sheets {
		if cs.cols == nil {
			continue
		}
		for row := 1; row < len(cs.sheet.Rows); row++ {
			if sameClass(cs.cell(row, schema.ClassName), class) {
				return cs, row, nil
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: %q in %s slot %q", ErrClassNotFound, class, s.Name, slot)
}

// Class returns the record for class in slot.
func (s *SchoolStore) Class(slot, class string) (ClassRecord, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return ClassRecord{}, err
	}
	return s.record(cs, row), nil
}

func (s *SchoolStore) writeStudents(cs *classSheet, row int, names []string) bool {
	changed := cs.set(row, schema.StudentList, FormatStudentList(names))
	if cs.cols.Has(schema.Headcount) {
		changed = cs.set(row, schema.Headcount, strconv.Itoa(len(names))) || changed
	}
	return changed
}

// AddStudent appends name to the class list unless a SameName-equal entry
// is already there. It reports whether the sheet changed.
func (s *SchoolStore) AddStudent(slot, class, name string) (bool, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return false, err
	}
	names := ParseStudentList(cs.cell(row, schema.StudentList))
	if match.IndexOf(names, name) >= 0 {
		return false, nil
	}
	return s.writeStudents(cs, row, append(names, strings.TrimSpace(name))), nil
}

// RemoveStudent drops the entry m resolves name to. A name missing from
// the list is not an error.
func (s *SchoolStore) RemoveStudent(m match.Matcher, slot, class, name string) (bool, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return false, err
	}
	names := ParseStudentList(cs.cell(row, schema.StudentList))
	res, err := m.Resolve(name, names)
	if err != nil {
		if errors.Is(err, match.ErrNoMatch) {
			return false, nil
		}
		return false, err
	}
	names = append(names[:res.Index], names[res.Index+1:]...)
	return s.writeStudents(cs, row, names), nil
}

// RetainStudents keeps only the entries keep accepts and returns the
// dropped names.
func (s *SchoolStore) RetainStudents(slot, class string, keep func(name string) bool) ([]string, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return nil, err
	}
	var kept, dropped []string
	for _, n := range ParseStudentList(cs.cell(row, schema.StudentList)) {
		if keep(n) {
			kept = append(kept, n)
		} else {
			dropped = append(dropped, n)
		}
	}
	if len(dropped) > 0 {
		s.writeStudents(cs, row, kept)
	}
	return dropped, nil
}

// staffField picks the column a staff member of role is written to.
func staffField(cs *classSheet, role string) schema.Field {
	if role == schema.RoleAnimateur && cs.cols.Has(schema.Animator) {
		return schema.Animator
	}
	return schema.Intervenant
}

// SetStaff writes name into the staff column of the class for role. An
// empty name writes Unspecified.
func (s *SchoolStore) SetStaff(slot, class, role, name string) (bool, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = Unspecified
	}
	return cs.set(row, staffField(cs, role), name), nil
}

// UnsetStaff writes Unspecified where the staff column for role names
// staff according to m.
func (s *SchoolStore) UnsetStaff(m match.Matcher, slot, class, role, staff string) (bool, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return false, err
	}
	f := staffField(cs, role)
	current := cs.cell(row, f)
	if current == "" || strings.EqualFold(current, Unspecified) {
		return false, nil
	}
	if _, err := m.Resolve(staff, []string{current}); err != nil {
		if errors.Is(err, match.ErrNoMatch) {
			return false, nil
		}
		return false, err
	}
	return cs.set(row, f, Unspecified), nil
}

// UnsetStaffEverywhere clears role's staff column on every class that
// names staff and returns how many rows changed.
func (s *SchoolStore) UnsetStaffEverywhere(m match.Matcher, role, staff string) int {
	changed := 0
	for _, cs := range s.sheets {
		if cs.cols == nil {
			continue
		}
		f := staffField(cs, role)
		for row := 1; row < len(cs.sheet.Rows); row++ {
			current := cs.cell(row, f)
			if current == "" || strings.EqualFold(current, Unspecified) {
				continue
			}
			if _, err := m.Resolve(staff, []string{current}); err != nil {
				continue
			}
			if cs.set(row, f, Unspecified) {
				changed++
			}
		}
	}
	return changed
}

// RenameClass renames a class within its slot. Renaming to the current
// name, or when only newName exists, is a no-op.
func (s *SchoolStore) RenameClass(slot, oldName, newName string) (bool, error) {
	if sameClass(oldName, newName) {
		return false, nil
	}
	cs, row, err := s.locate(slot, oldName)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			if _, _, nerr := s.locate(slot, newName); nerr == nil {
				return false, nil
			}
		}
		return false, err
	}
	if _, _, err := s.locate(slot, newName); err == nil {
		return false, fmt.Errorf("%w: %q in %s slot %q", ErrClassExists, newName, s.Name, slot)
	}
	return cs.set(row, schema.ClassName, strings.TrimSpace(newName)), nil
}

// DeleteClass removes the class row and returns the students it listed.
// A class already gone is reported with ErrClassNotFound.
func (s *SchoolStore) DeleteClass(slot, class string) ([]string, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return nil, err
	}
	students := ParseStudentList(cs.cell(row, schema.StudentList))
	cs.sheet.RemoveRow(row)
	return students, nil
}

// SlotClasses returns every class row of slot, in sheet order.
func (s *SchoolStore) SlotClasses(slot string) ([]ClassRecord, error) {
	sheets, err := s.slotSheets(slot)
	if err != nil {
		return nil, err
	}
	var out []ClassRecord
	for _, cs := range sheets {
		if cs.cols == nil {
			continue
		}
		for row := 1; row < len(cs.sheet.Rows); row++ {
			if rec := s.record(cs, row); rec.Name != "" {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// SetLevel writes the level cell of a class row. It reports whether the
// sheet changed.
func (s *SchoolStore) SetLevel(slot, class, level string) (bool, error) {
	cs, row, err := s.locate(slot, class)
	if err != nil {
		return false, err
	}
	return cs.set(row, schema.ClassLevel, strings.TrimSpace(level)), nil
}

// CreateClass adds a class to the first sheet of slot, writing a default
// header on an empty sheet. It reports false when the class already exists.
func (s *SchoolStore) CreateClass(slot, class, level string) (bool, error) {
	_, _, err := s.locate(slot, class)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrClassNotFound) {
		return false, err
	}

	sheets, err := s.slotSheets(slot)
	if err != nil {
		return false, err
	}
	target := sheets[0]
	for _, cs := range sheets {
		if cs.cols != nil {
			target = cs
			break
		}
	}

	if target.cols == nil {
		for i, title := range schema.DefaultClassHeader {
			target.sheet.Set(0, i, title)
		}
		cols, err := schema.Resolve(target.sheet.Header(), schema.ClassTable)
		if err != nil {
			return false, err
		}
		target.cols = cols
	}

	row := target.sheet.AppendRow()
	target.set(row, schema.ClassName, strings.TrimSpace(class))
	target.set(row, schema.ClassLevel, strings.TrimSpace(level))
	target.set(row, schema.Intervenant, Unspecified)
	return true, nil
}

// ClearLists empties every student list and level and returns how many
// classes changed.
func (s *SchoolStore) ClearLists() int {
	changed := 0
	for _, cs := range s.sheets {
		if cs.cols == nil {
			continue
		}
		for row := 1; row < len(cs.sheet.Rows); row++ {
			if cs.cell(row, schema.ClassName) == "" {
				continue
			}
			c := s.writeStudents(cs, row, nil)
			c = cs.set(row, schema.ClassLevel, "") || c
			if c {
				changed++
			}
		}
	}
	return changed
}

// Modified reports unsaved changes.
func (s *SchoolStore) Modified() bool {
	return s.book.Modified()
}

// Save writes the workbook back when it was modified.
func (s *SchoolStore) Save(b Backend) error {
	if !s.Modified() {
		return nil
	}
	return b.Save(s.book)
}
