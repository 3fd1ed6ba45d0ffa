package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
)

// Role is a personnel list of the registry.
type Role string

const (
	Professeurs Role = "professeurs"
	Animateurs  Role = "animateurs"
)

// Roles lists the registry sections in file order.
var Roles = []Role{Professeurs, Animateurs}

// ParseRole accepts the singular, plural and short forms of a role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prof", "professeur", "professeurs", "teacher":
		return Professeurs, nil
	case "anim", "animateur", "animateurs", "animator":
		return Animateurs, nil
	default:
		return "", fmt.Errorf("unknown role %q (want professeur or animateur)", s)
	}
}

// SheetRole is the schema role name used for slot sheets.
func (r Role) SheetRole() string {
	if r == Animateurs {
		return schema.RoleAnimateur
	}
	return schema.RoleProfesseur
}

// Staff is one personnel entry.
type Staff struct {
	Name    string   `json:"nom"`
	Classes []string `json:"classes"`
}

// HasClass reports whether the staff member claims class.
func (s *Staff) HasClass(class string) bool {
	return indexClass(s.Classes, class) >= 0
}

func indexClass(classes []string, class string) int {
	for i, c := range classes {
		if sameClass(c, class) {
			return i
		}
	}
	return -1
}

// Registry is the personnel document of a week.
type Registry struct {
	Professeurs []*Staff `json:"professeurs"`
	Animateurs  []*Staff `json:"animateurs"`

	// Dropped counts entries discarded on load because they were neither
	// a name nor a {"nom", "classes"} object.
	Dropped int `json:"-"`

	path     string
	modified bool
}

// NewRegistry returns an empty registry that will be saved to path.
func NewRegistry(path string) *Registry {
	return &Registry{Professeurs: []*Staff{}, Animateurs: []*Staff{}, path: path}
}

// LoadRegistry reads the registry at path, migrating legacy entries that
// are plain name strings.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pathErr("open", path, err)
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &PathError{Op: "parse", Path: path, Err: err}
	}

	reg := NewRegistry(path)
	for _, role := range Roles {
		for _, entry := range raw[string(role)] {
			st, ok := decodeStaff(entry)
			if !ok {
				reg.Dropped++
				continue
			}
			reg.list(role, func(l []*Staff) []*Staff { return append(l, st) })
		}
	}
	return reg, nil
}

func decodeStaff(entry json.RawMessage) (*Staff, bool) {
	var name string
	if err := json.Unmarshal(entry, &name); err == nil {
		name = strings.TrimSpace(name)
		return &Staff{Name: name, Classes: []string{}}, name != ""
	}
	var st Staff
	if err := json.Unmarshal(entry, &st); err != nil || strings.TrimSpace(st.Name) == "" {
		return nil, false
	}
	if st.Classes == nil {
		st.Classes = []string{}
	}
	return &st, true
}

// Path returns the registry location.
func (r *Registry) Path() string {
	return r.path
}

func (r *Registry) list(role Role, update func([]*Staff) []*Staff) []*Staff {
	switch role {
	case Animateurs:
		if update != nil {
			r.Animateurs = update(r.Animateurs)
		}
		return r.Animateurs
	default:
		if update != nil {
			r.Professeurs = update(r.Professeurs)
		}
		return r.Professeurs
	}
}

// Staff returns the entries of role.
func (r *Registry) Staff(role Role) []*Staff {
	return r.list(role, nil)
}

// Names returns the names of role in file order.
func (r *Registry) Names(role Role) []string {
	staff := r.Staff(role)
	names := make([]string, len(staff))
	for i, st := range staff {
		names[i] = st.Name
	}
	return names
}

// Find locates a staff member of role by name.
func (r *Registry) Find(m match.Matcher, role Role, name string) (*Staff, error) {
	res, err := m.Resolve(name, r.Names(role))
	if err != nil {
		return nil, err
	}
	return r.Staff(role)[res.Index], nil
}

// Add inserts a staff member unless a SameName-equal entry exists.
func (r *Registry) Add(role Role, name string) (*Staff, bool) {
	name = strings.TrimSpace(name)
	for _, st := range r.Staff(role) {
		if match.SameName(st.Name, name) {
			return st, false
		}
	}
	st := &Staff{Name: name, Classes: []string{}}
	r.list(role, func(l []*Staff) []*Staff { return append(l, st) })
	r.modified = true
	return st, true
}

// Remove deletes the staff member m resolves name to.
func (r *Registry) Remove(m match.Matcher, role Role, name string) (*Staff, error) {
	st, err := r.Find(m, role, name)
	if err != nil {
		return nil, err
	}
	r.list(role, func(l []*Staff) []*Staff {
		out := l[:0]
		for _, s := range l {
			if s != st {
				out = append(out, s)
			}
		}
		return out
	})
	r.modified = true
	return st, nil
}

// SortByName orders role's entries by folded name.
func (r *Registry) SortByName(role Role) {
	staff := r.Staff(role)
	if sort.SliceIsSorted(staff, func(i, j int) bool { return match.Fold(staff[i].Name) < match.Fold(staff[j].Name) }) {
		return
	}
	sort.SliceStable(staff, func(i, j int) bool { return match.Fold(staff[i].Name) < match.Fold(staff[j].Name) })
	r.modified = true
}

// AddClass gives class to st, keeping the list sorted and unique.
func (r *Registry) AddClass(st *Staff, class string) bool {
	class = strings.TrimSpace(class)
	if class == "" || st.HasClass(class) {
		return false
	}
	st.Classes = append(st.Classes, class)
	sort.Strings(st.Classes)
	r.modified = true
	return true
}

// RemoveClassFrom takes class away from st.
func (r *Registry) RemoveClassFrom(st *Staff, class string) bool {
	i := indexClass(st.Classes, class)
	if i < 0 {
		return false
	}
	st.Classes = append(st.Classes[:i], st.Classes[i+1:]...)
	r.modified = true
	return true
}

// RenameClass replaces oldName by newName in every list and returns how
// many staff members changed.
func (r *Registry) RenameClass(oldName, newName string) int {
	changed := 0
	for _, role := range Roles {
		for _, st := range r.Staff(role) {
			i := indexClass(st.Classes, oldName)
			if i < 0 {
				continue
			}
			if st.HasClass(newName) {
				st.Classes = append(st.Classes[:i], st.Classes[i+1:]...)
			} else {
				st.Classes[i] = strings.TrimSpace(newName)
				sort.Strings(st.Classes)
			}
			changed++
		}
	}
	if changed > 0 {
		r.modified = true
	}
	return changed
}

// RemoveClass removes class from every list and returns how many staff
// members changed.
func (r *Registry) RemoveClass(class string) int {
	changed := 0
	for _, role := range Roles {
		for _, st := range r.Staff(role) {
			if r.RemoveClassFrom(st, class) {
				changed++
			}
		}
	}
	return changed
}

// ClearClasses empties every class list and returns how many staff
// members changed.
func (r *Registry) ClearClasses() int {
	changed := 0
	for _, role := range Roles {
		for _, st := range r.Staff(role) {
			if len(st.Classes) > 0 {
				st.Classes = []string{}
				changed++
			}
		}
	}
	if changed > 0 {
		r.modified = true
	}
	return changed
}

// Modified reports unsaved changes.
func (r *Registry) Modified() bool {
	return r.modified
}

// Save writes the registry with 4-space indentation and unescaped
// non-ASCII text when it was modified.
func (r *Registry) Save() error {
	if !r.modified {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode personnel registry: %w", err)
	}
	if err := os.WriteFile(r.path, buf.Bytes(), 0644); err != nil {
		return pathErr("save", r.path, err)
	}
	r.modified = false
	return nil
}

// RegistryExists reports whether a registry file is present at path.
func RegistryExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
