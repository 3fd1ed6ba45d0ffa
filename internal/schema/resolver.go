package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is matched by every SchemaError.
var ErrSchema = errors.New("schema error")

// SchemaError reports a required field that no header could satisfy.
type SchemaError struct {
	Field   Field
	Headers []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q not found (headers: %s)", e.Field, strings.Join(e.Headers, ", "))
}

// Is makes errors.Is(err, ErrSchema) true.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// Absent is the column index of an unresolved field.
const Absent = -1

// Mapping is the result of resolving a header row against a Table.
type Mapping struct {
	table   Table
	columns map[Field]int
	width   int
}

// Column returns the index of f, or Absent.
func (m *Mapping) Column(f Field) int {
	if idx, ok := m.columns[f]; ok {
		return idx
	}
	return Absent
}

// Has reports whether f resolved to a column.
func (m *Mapping) Has(f Field) bool {
	return m.Column(f) != Absent
}

// Get returns the cell for f in row, or "" when the field or cell is absent.
func (m *Mapping) Get(row []string, f Field) string {
	idx := m.Column(f)
	if idx == Absent || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Ensure returns the column for f, appending a header cell titled after the
// field when it is absent. The header slice is modified in place and
// returned.
func (m *Mapping) Ensure(header []string, f Field) ([]string, int) {
	if idx := m.Column(f); idx != Absent {
		return header, idx
	}
	title := string(f)
	if spec, ok := m.table.Lookup(f); ok && spec.Title != "" {
		title = spec.Title
	}
	for len(header) < m.width {
		header = append(header, "")
	}
	header = append(header, title)
	idx := len(header) - 1
	m.columns[f] = idx
	m.width = len(header)
	return header, idx
}

// Resolve maps headers to the fields of table.
//
// For each field, in table order: the first unclaimed column whose
// normalized header equals a keyword wins; failing that, the first whose
// header contains a keyword longer than two characters. Columns rejected
// by one of the field's exclusion predicates are never considered.
func Resolve(headers []string, table Table) (*Mapping, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	m := &Mapping{
		table:   table,
		columns: make(map[Field]int, len(table)),
		width:   len(headers),
	}
	claimed := make(map[int]bool)

	for _, spec := range table {
		idx := find(normalized, spec, claimed)
		if idx == Absent && spec.Fallback >= 0 && spec.Fallback < len(headers) && !claimed[spec.Fallback] {
			idx = spec.Fallback
		}
		if idx == Absent {
			if spec.Required {
				return nil, &SchemaError{Field: spec.Field, Headers: headers}
			}
			continue
		}
		m.columns[spec.Field] = idx
		claimed[idx] = true
	}

	return m, nil
}

func find(headers []string, spec FieldSpec, claimed map[int]bool) int {
	usable := func(i int) bool {
		if claimed[i] || headers[i] == "" {
			return false
		}
		for _, exclude := range spec.Exclude {
			if exclude(headers[i]) {
				return false
			}
		}
		return true
	}

	for i, h := range headers {
		if !usable(i) {
			continue
		}
		for _, kw := range spec.Keywords {
			if h == kw {
				return i
			}
		}
	}

	for i, h := range headers {
		if !usable(i) {
			continue
		}
		for _, kw := range spec.Keywords {
			if len([]rune(kw)) > 2 && strings.Contains(h, kw) {
				return i
			}
		}
	}

	return Absent
}

// NormalizeHeader trims and lowercases a header cell.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
