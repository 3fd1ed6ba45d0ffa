// Package conflict reports classes claimed by more than one staff member of
// the same role in a personnel registry.
package conflict

import (
	"sort"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/store"
)

// Class is a contested class and the staff members claiming it.
type Class struct {
	Role   store.Role `json:"role" yaml:"role"`
	Name   string     `json:"class" yaml:"class"`
	Owners []string   `json:"owners" yaml:"owners"`
}

// Report is the result of Detect. The zero value reports no conflict.
type Report struct {
	Classes []Class `json:"classes" yaml:"classes"`

	names map[string]string
}

// Detect scans reg and returns every class with more than one owner. A
// professeur and an animateur sharing a class do not conflict.
func Detect(reg *store.Registry) Report {
	var r Report
	if reg == nil {
		return r
	}
	for _, role := range store.Roles {
		r.Classes = append(r.Classes, detectRole(reg, role)...)
	}
	for _, c := range r.Classes {
		for _, owner := range c.Owners {
			if r.names == nil {
				r.names = make(map[string]string)
			}
			r.names[match.Normalize(owner)] = owner
		}
	}
	return r
}

func detectRole(reg *store.Registry, role store.Role) []Class {
	type entry struct {
		name   string
		owners []string
		seen   map[*store.Staff]bool
	}
	byClass := make(map[string]*entry)
	var order []string

	for _, st := range reg.Staff(role) {
		for _, class := range st.Classes {
			key := match.Normalize(class)
			if key == "" {
				continue
			}
			e, ok := byClass[key]
			if !ok {
				e = &entry{name: class, seen: make(map[*store.Staff]bool)}
				byClass[key] = e
				order = append(order, key)
			}
			if e.seen[st] {
				continue
			}
			e.seen[st] = true
			e.owners = append(e.owners, st.Name)
		}
	}

	var out []Class
	for _, key := range order {
		e := byClass[key]
		if len(e.owners) < 2 {
			continue
		}
		out = append(out, Class{Role: role, Name: e.name, Owners: e.owners})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return match.Fold(out[i].Name) < match.Fold(out[j].Name)
	})
	return out
}

// Empty reports whether no class is contested.
func (r Report) Empty() bool {
	return len(r.Classes) == 0
}

// Names returns the conflicted staff members, sorted.
func (r Report) Names() []string {
	out := make([]string, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return match.Fold(out[i]) < match.Fold(out[j]) })
	return out
}

// Has reports whether name is one of the conflicted staff members.
func (r Report) Has(name string) bool {
	_, ok := r.names[match.Normalize(name)]
	return ok
}

// ClassesOf returns the contested classes name is involved in.
func (r Report) ClassesOf(name string) []Class {
	var out []Class
	for _, c := range r.Classes {
		for _, owner := range c.Owners {
			if match.SameName(owner, name) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
