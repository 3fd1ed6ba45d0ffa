package store

import (
	"sort"
	"strings"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
)

// Enrollment is one course track of a student.
type Enrollment struct {
	School  string
	Slot    string
	Class   string
	Teacher string
	Start   string
	End     string
}

// Placed reports whether school, slot and class are all set.
func (e Enrollment) Placed() bool {
	return e.School != "" && e.Slot != "" && e.Class != ""
}

// Student is one roster row.
type Student struct {
	Row   int
	Name  string
	Age   string
	Level string
	Enrollment
	CI Enrollment
}

// Assigned reports whether the student has a complete primary placement.
func (s Student) Assigned() bool {
	return s.Name != "" && s.Placed()
}

// Stats summarizes a roster.
type Stats struct {
	Total        int            `json:"total" yaml:"total"`
	WithoutClass int            `json:"without_class" yaml:"without_class"`
	WithoutLevel int            `json:"without_level" yaml:"without_level"`
	Assigned     int            `json:"assigned" yaml:"assigned"`
	ByLevel      map[string]int `json:"by_level" yaml:"by_level"`
}

// Roster is the central student table: the first sheet of the roster
// workbook.
type Roster struct {
	book  *Workbook
	sheet *Sheet
	cols  *schema.Mapping
}

// LoadRoster reads and resolves the roster workbook at path.
func LoadRoster(b Backend, path string) (*Roster, error) {
	wb, err := b.Open(path)
	if err != nil {
		return nil, err
	}
	sheet := wb.Sheets[0]
	cols, err := schema.Resolve(sheet.Header(), schema.RosterTable)
	if err != nil {
		return nil, &PathError{Op: "resolve", Path: path, Err: err}
	}
	return &Roster{book: wb, sheet: sheet, cols: cols}, nil
}

// Path returns the workbook location.
func (r *Roster) Path() string {
	return r.book.Path
}

// Has reports whether the roster has a column for f.
func (r *Roster) Has(f schema.Field) bool {
	return r.cols.Has(f)
}

func (r *Roster) get(row int, f schema.Field) string {
	if row <= 0 || row >= len(r.sheet.Rows) {
		return ""
	}
	return Clean(r.cols.Get(r.sheet.Rows[row], f))
}

// Student returns the row at index row.
func (r *Roster) Student(row int) Student {
	return Student{
		Row:   row,
		Name:  r.get(row, schema.Student),
		Age:   r.get(row, schema.Age),
		Level: r.get(row, schema.Level),
		Enrollment: Enrollment{
			School:  r.get(row, schema.School),
			Slot:    r.get(row, schema.Slot),
			Class:   r.get(row, schema.Class),
			Teacher: r.get(row, schema.Teacher),
			Start:   r.get(row, schema.Start),
			End:     r.get(row, schema.End),
		},
		CI: Enrollment{
			School:  r.get(row, schema.SchoolCI),
			Slot:    r.get(row, schema.SlotCI),
			Class:   r.get(row, schema.ClassCI),
			Teacher: r.get(row, schema.TeacherCI),
			Start:   r.get(row, schema.StartCI),
			End:     r.get(row, schema.EndCI),
		},
	}
}

// Students returns every row with a name, in sheet order.
func (r *Roster) Students() []Student {
	var out []Student
	for row := 1; row < len(r.sheet.Rows); row++ {
		if s := r.Student(row); s.Name != "" {
			out = append(out, s)
		}
	}
	return out
}

// Find locates a student by name.
func (r *Roster) Find(m match.Matcher, name string) (Student, error) {
	names := make([]string, 0, len(r.sheet.Rows))
	for row := 1; row < len(r.sheet.Rows); row++ {
		names = append(names, r.get(row, schema.Student))
	}
	res, err := m.Resolve(name, names)
	if err != nil {
		return Student{}, err
	}
	return r.Student(res.Index + 1), nil
}

// Lookup returns the student whose name is SameName-equal to name.
func (r *Roster) Lookup(name string) (Student, bool) {
	for row := 1; row < len(r.sheet.Rows); row++ {
		if match.SameName(r.get(row, schema.Student), name) {
			return r.Student(row), true
		}
	}
	return Student{}, false
}

// Set writes one field of a row and reports whether it changed. A missing
// optional column is created, unless value is empty.
func (r *Roster) Set(row int, f schema.Field, value string) bool {
	if row <= 0 || row >= len(r.sheet.Rows) {
		return false
	}
	value = strings.TrimSpace(value)
	if Clean(r.cols.Get(r.sheet.Rows[row], f)) == value {
		return false
	}
	col := r.cols.Column(f)
	if col == schema.Absent {
		if value == "" {
			return false
		}
		header, idx := r.cols.Ensure(append([]string(nil), r.sheet.Header()...), f)
		r.sheet.Set(0, idx, header[idx])
		col = idx
	}
	return r.sheet.Set(row, col, value)
}

// SetPlacement writes school, slot and class of the primary track.
func (r *Roster) SetPlacement(row int, school, slot, class string) bool {
	changed := r.Set(row, schema.School, school)
	changed = r.Set(row, schema.Slot, slot) || changed
	changed = r.Set(row, schema.Class, class) || changed
	return changed
}

// Append adds a student row and returns it.
func (r *Roster) Append(name, age, level string) Student {
	row := r.sheet.AppendRow()
	r.Set(row, schema.Student, name)
	r.Set(row, schema.Age, age)
	r.Set(row, schema.Level, level)
	return r.Student(row)
}

// Remove deletes a student row. Row indexes after it shift by one.
func (r *Roster) Remove(row int) {
	if row <= 0 {
		return
	}
	r.sheet.RemoveRow(row)
}

// Modified reports unsaved changes.
func (r *Roster) Modified() bool {
	return r.book.Modified()
}

// Save writes the roster back when it was modified.
func (r *Roster) Save(b Backend) error {
	if !r.Modified() {
		return nil
	}
	return b.Save(r.book)
}

// Stats counts students by placement and level.
func (r *Roster) Stats() Stats {
	st := Stats{ByLevel: make(map[string]int)}
	for _, s := range r.Students() {
		st.Total++
		if s.Class == "" {
			st.WithoutClass++
		}
		if s.Level == "" {
			st.WithoutLevel++
		} else {
			st.ByLevel[s.Level]++
		}
		if s.Assigned() {
			st.Assigned++
		}
	}
	return st
}

// Levels is the level catalogue, easiest first.
var Levels = []string{
	"A0", "A0/A0+", "Pré-A1", "Pré-A1/A1", "A1", "A1.2", "A1.2/A2", "A2",
	"A2/A2.2", "A2.2", "A2.2/B1", "B1", "B1.2", "B2", "Pitchoune",
}

// KnownLevel reports whether level is in the catalogue.
func KnownLevel(level string) bool {
	for _, l := range Levels {
		if strings.EqualFold(l, strings.TrimSpace(level)) {
			return true
		}
	}
	return false
}

// SortedLevels returns the keys of counts in catalogue order, unknown
// levels last in lexical order.
func SortedLevels(counts map[string]int) []string {
	rank := make(map[string]int, len(Levels))
	for i, l := range Levels {
		rank[l] = i
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
