package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecoles/roster/internal/catalog"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
)

// loadRegistry returns the week registry, or nil when the week has none.
func (e *engine) loadRegistry(s *Session) (*store.Registry, error) {
	reg, err := s.Registry()
	if err != nil {
		if store.IsNotFound(err) {
			e.logger.Printf("No personnel registry at %s (skipping)", s.Week.PersonnelPath())
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	if reg.Dropped > 0 {
		e.logger.Printf("WARNING: %d invalid personnel entries ignored", reg.Dropped)
	}
	return reg, nil
}

// canonicalSlot returns the cleaned label of the sheet holding class, or
// slot itself when the class row is gone.
func canonicalSlot(sch *store.SchoolStore, slot, class string) string {
	if rec, err := sch.Class(slot, class); err == nil {
		return rec.Slot
	}
	return slot
}

func saveRegistry(reg *store.Registry) error {
	if reg == nil {
		return nil
	}
	return reg.Save()
}

// RenameClass implements Syncer.RenameClass.
func (e *engine) RenameClass(ctx context.Context, s *Session, school, slot, oldName, newName string) (err error) {
	defer func() {
		e.record(ctx, s, "rename-class", fmt.Sprintf("%s/%s: %s -> %s", school, slot, oldName, newName), err)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	if err := validateClassName(newName); err != nil {
		return err
	}

	sc, err := s.Catalog.Lookup(school)
	if err != nil {
		return err
	}
	schools := newSchoolSet(s)
	sch, err := schools.get(sc.Key)
	if err != nil {
		return fmt.Errorf("failed to load school %s: %w", sc.Name, err)
	}
	slot = canonicalSlot(sch, slot, oldName)
	if _, err := sch.RenameClass(slot, oldName, newName); err != nil {
		return err
	}

	roster, err := s.Roster()
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	rows := 0
	for _, st := range roster.Students() {
		if pointsAt(st.Enrollment, sc, slot, oldName) {
			roster.Set(st.Row, schema.Class, newName)
			rows++
		}
		if pointsAt(st.CI, sc, slot, oldName) {
			roster.Set(st.Row, schema.ClassCI, newName)
			rows++
		}
	}

	reg, err := e.loadRegistry(s)
	if err != nil {
		return err
	}
	staff := 0
	if reg != nil {
		staff = reg.RenameClass(oldName, newName)
	}

	p := &steps{op: "rename-class"}
	if err := p.run("class", func() error { _, err := schools.save(); return err }); err != nil {
		return err
	}
	if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
		return err
	}
	if err := p.run("personnel", func() error { return saveRegistry(reg) }); err != nil {
		return err
	}

	e.logger.Printf("Renamed %s/%s %s to %s (roster=%d, personnel=%d)", sc.Name, slot, oldName, newName, rows, staff)
	return nil
}

// DeleteClass implements Syncer.DeleteClass.
func (e *engine) DeleteClass(ctx context.Context, s *Session, school, slot, class string) (report *DeleteReport, err error) {
	defer func() { e.record(ctx, s, "delete-class", fmt.Sprintf("%s/%s/%s", school, slot, class), err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := e.newDeletion(s, school)
	if err != nil {
		return nil, err
	}
	slot = canonicalSlot(d.sch, slot, class)
	if err := d.remove(slot, class); err != nil {
		return nil, err
	}
	if err := d.save("delete-class"); err != nil {
		return d.report, err
	}

	e.logger.Printf("Deleted class %s/%s/%s (students=%d, cleared=%d, personnel=%d)",
		d.sc.Name, slot, class, len(d.report.Students), d.report.Cleared, d.report.Personnel)
	return d.report, nil
}

// DeleteSlotClasses implements Syncer.DeleteSlotClasses.
func (e *engine) DeleteSlotClasses(ctx context.Context, s *Session, school, slot string) (report *DeleteReport, err error) {
	defer func() { e.record(ctx, s, "delete-slot", fmt.Sprintf("%s/%s", school, slot), err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := e.newDeletion(s, school)
	if err != nil {
		return nil, err
	}
	classes, err := d.sch.SlotClasses(slot)
	if err != nil {
		return nil, err
	}
	for _, rec := range classes {
		if err := d.remove(rec.Slot, rec.Name); err != nil {
			return nil, err
		}
	}
	if err := d.save("delete-slot"); err != nil {
		return d.report, err
	}

	e.logger.Printf("Deleted %d classes of %s/%s (students=%d, cleared=%d, personnel=%d)",
		len(d.report.Classes), d.sc.Name, slot, len(d.report.Students), d.report.Cleared, d.report.Personnel)
	return d.report, nil
}

// deletion holds the stores of a class deletion while its edits are
// applied in memory.
type deletion struct {
	e       *engine
	s       *Session
	sc      catalog.School
	schools *schoolSet
	sch     *store.SchoolStore
	roster  *store.Roster
	reg     *store.Registry
	report  *DeleteReport
}

func (e *engine) newDeletion(s *Session, school string) (*deletion, error) {
	sc, err := s.Catalog.Lookup(school)
	if err != nil {
		return nil, err
	}
	schools := newSchoolSet(s)
	sch, err := schools.get(sc.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load school %s: %w", sc.Name, err)
	}
	roster, err := s.Roster()
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	reg, err := e.loadRegistry(s)
	if err != nil {
		return nil, err
	}
	return &deletion{e: e, s: s, sc: sc, schools: schools, sch: sch, roster: roster, reg: reg, report: &DeleteReport{}}, nil
}

// remove deletes the class row, clears the roster rows pointing at it and
// drops it from every staff list. A class row already gone still clears
// the roster and the registry.
func (d *deletion) remove(slot, class string) error {
	students, err := d.sch.DeleteClass(slot, class)
	switch {
	case err == nil:
		d.report.Found = true
		d.report.Classes = append(d.report.Classes, class)
		d.report.Students = append(d.report.Students, students...)
	case errors.Is(err, store.ErrClassNotFound):
		d.e.logger.Printf("Class %s/%s/%s already removed", d.sc.Name, slot, class)
	default:
		return err
	}

	for _, name := range students {
		st, err := d.roster.Find(d.e.matcher, name)
		if err != nil {
			d.e.logger.Printf("WARNING: listed student %s not in roster: %v", name, err)
			continue
		}
		if !pointsAt(st.Enrollment, d.sc, slot, class) && !pointsAt(st.CI, d.sc, slot, class) {
			d.e.logger.Printf("WARNING: %s was listed in %s but the roster places them in %s/%s/%s",
				st.Name, class, st.School, st.Slot, st.Class)
		}
	}
	for _, st := range d.roster.Students() {
		cleared := false
		if pointsAt(st.Enrollment, d.sc, slot, class) {
			d.roster.SetPlacement(st.Row, "", "", "")
			cleared = true
		}
		if pointsAt(st.CI, d.sc, slot, class) {
			d.roster.Set(st.Row, schema.SchoolCI, "")
			d.roster.Set(st.Row, schema.SlotCI, "")
			d.roster.Set(st.Row, schema.ClassCI, "")
			cleared = true
		}
		if cleared {
			d.report.Cleared++
		}
	}

	if d.reg != nil {
		d.report.Personnel += d.reg.RemoveClass(class)
	}
	return nil
}

// save writes the roster, then the class workbook, then the registry.
func (d *deletion) save(op string) error {
	p := &steps{op: op}
	if err := p.run("roster", func() error { return d.roster.Save(d.s.Backend) }); err != nil {
		return err
	}
	if err := p.run("class", func() error { _, err := d.schools.save(); return err }); err != nil {
		return err
	}
	return p.run("personnel", func() error { return saveRegistry(d.reg) })
}

// SetClassLevel implements Syncer.SetClassLevel.
func (e *engine) SetClassLevel(ctx context.Context, s *Session, school, slot, class, level string) (changed bool, err error) {
	defer func() {
		e.record(ctx, s, "set-level", fmt.Sprintf("%s/%s/%s: %s", school, slot, class, level), err)
	}()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	sch, err := s.School(school)
	if err != nil {
		return false, fmt.Errorf("failed to load school %s: %w", school, err)
	}
	changed, err = sch.SetLevel(slot, class, level)
	if err != nil || !changed {
		return false, err
	}
	e.checkLevel(level)
	if err := sch.Save(s.Backend); err != nil {
		return false, fmt.Errorf("failed to save school %s: %w", sch.Name, err)
	}
	e.logger.Printf("Set level of %s/%s/%s to %q", sch.Name, slot, class, strings.TrimSpace(level))
	return true, nil
}

// CreateClass implements Syncer.CreateClass.
func (e *engine) CreateClass(ctx context.Context, s *Session, school, slot, class, level string) (created bool, err error) {
	defer func() { e.record(ctx, s, "create-class", fmt.Sprintf("%s/%s/%s", school, slot, class), err) }()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateClassName(class); err != nil {
		return false, err
	}

	sch, err := s.School(school)
	if err != nil {
		return false, fmt.Errorf("failed to load school %s: %w", school, err)
	}
	created, err = sch.CreateClass(slot, class, level)
	if err != nil {
		return false, err
	}
	if !created {
		e.logger.Printf("Class %s already exists in %s/%s", class, sch.Name, slot)
		return false, nil
	}
	e.checkLevel(level)
	if err := sch.Save(s.Backend); err != nil {
		return false, fmt.Errorf("failed to save school %s: %w", sch.Name, err)
	}
	e.logger.Printf("Created class %s in %s/%s", class, sch.Name, slot)
	return true, nil
}

// ClearClassStores implements Syncer.ClearClassStores.
func (e *engine) ClearClassStores(ctx context.Context, s *Session) (changed int, err error) {
	defer func() { e.record(ctx, s, "clear-classes", "", err) }()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	schools := newSchoolSet(s)
	stores, err := schools.all()
	if err != nil {
		return 0, fmt.Errorf("failed to load schools: %w", err)
	}
	for _, sch := range stores {
		changed += sch.ClearLists()
	}
	if failed, err := schools.save(); err != nil {
		return changed, fmt.Errorf("failed to save %s: %w", strings.Join(failed, ", "), err)
	}
	e.logger.Printf("Cleared %d classes in %d schools", changed, len(stores))
	return changed, nil
}
