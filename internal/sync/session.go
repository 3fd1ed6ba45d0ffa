package sync

import (
	"strings"

	"github.com/ecoles/roster/internal/catalog"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/week"
)

// Session is the context of one week: where its stores live and how they
// are read.
type Session struct {
	Week    *week.Week
	Catalog *catalog.Catalog
	Backend store.Backend
}

// NewSession returns a session for w. A nil catalog uses catalog.Default
// and a nil backend the excelize backend.
func NewSession(w *week.Week, c *catalog.Catalog, b store.Backend) *Session {
	if c == nil {
		c = catalog.Default()
	}
	if b == nil {
		b = store.NewExcel(nil)
	}
	return &Session{Week: w, Catalog: c, Backend: b}
}

// Roster loads the roster of the week.
func (s *Session) Roster() (*store.Roster, error) {
	return store.LoadRoster(s.Backend, s.Week.RosterPath())
}

// School loads the workbook of the school named name (display name or key).
func (s *Session) School(name string) (*store.SchoolStore, error) {
	sc, err := s.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	return store.LoadSchool(s.Backend, sc.Name, s.Week.SchoolPath(sc))
}

// Registry loads the personnel registry of the week.
func (s *Session) Registry() (*store.Registry, error) {
	return store.LoadRegistry(s.Week.PersonnelPath())
}

// schoolSet caches the school stores loaded by one operation so each
// workbook is read and saved once.
type schoolSet struct {
	sess   *Session
	order  []string
	stores map[string]*store.SchoolStore
}

func newSchoolSet(sess *Session) *schoolSet {
	return &schoolSet{sess: sess, stores: make(map[string]*store.SchoolStore)}
}

// get returns the store of the named school.
func (ss *schoolSet) get(name string) (*store.SchoolStore, error) {
	sc, err := ss.sess.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	if st, ok := ss.stores[sc.Key]; ok {
		return st, nil
	}
	st, err := store.LoadSchool(ss.sess.Backend, sc.Name, ss.sess.Week.SchoolPath(sc))
	if err != nil {
		return nil, err
	}
	ss.stores[sc.Key] = st
	ss.order = append(ss.order, sc.Key)
	return st, nil
}

// all loads every catalog school whose workbook exists.
func (ss *schoolSet) all() ([]*store.SchoolStore, error) {
	var out []*store.SchoolStore
	for _, sc := range ss.sess.Catalog.Schools {
		st, err := ss.get(sc.Key)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return out, err
		}
		out = append(out, st)
	}
	return out, nil
}

// modified reports whether a loaded store has unsaved changes.
func (ss *schoolSet) modified() bool {
	for _, key := range ss.order {
		if ss.stores[key].Modified() {
			return true
		}
	}
	return false
}

// save writes every modified store in load order. It keeps going after a
// failure and returns the names of the failed schools with the first error.
func (ss *schoolSet) save() ([]string, error) {
	var first error
	var failed []string
	for _, key := range ss.order {
		st := ss.stores[key]
		if err := st.Save(ss.sess.Backend); err != nil {
			failed = append(failed, st.Name)
			if first == nil {
				first = err
			}
		}
	}
	return failed, first
}

// sameSchool reports whether a roster school cell designates sc.
func sameSchool(cell string, sc catalog.School) bool {
	cell = strings.TrimSpace(cell)
	return cell != "" && (strings.EqualFold(cell, sc.Name) || strings.EqualFold(cell, sc.Key))
}

func sameClass(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// pointsAt reports whether e places a student in class of slot at sc.
func pointsAt(e store.Enrollment, sc catalog.School, slot, class string) bool {
	return sameSchool(e.School, sc) && schema.SameSlot(e.Slot, slot) && sameClass(e.Class, class)
}
