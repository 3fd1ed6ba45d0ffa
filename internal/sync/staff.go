package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecoles/roster/internal/catalog"
	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/week"
)

// AssignStaff implements Syncer.AssignStaff.
func (e *engine) AssignStaff(ctx context.Context, s *Session, role store.Role, staff, school, slot, class string) (err error) {
	defer func() {
		e.record(ctx, s, "assign-staff", fmt.Sprintf("%s %s -> %s/%s/%s", role, staff, school, slot, class), err)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	reg, err := s.Registry()
	if err != nil {
		return fmt.Errorf("failed to load personnel: %w", err)
	}
	member, err := reg.Find(e.matcher, role, staff)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", role.SheetRole(), err)
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
	rec, err := sch.Class(slot, class)
	if err != nil {
		return err
	}

	reg.AddClass(member, rec.Name)
	if _, err := sch.SetStaff(rec.Slot, rec.Name, role.SheetRole(), member.Name); err != nil {
		return err
	}

	var roster *store.Roster
	if role == store.Professeurs {
		roster, err = s.Roster()
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
		for _, name := range rec.Students {
			st, err := roster.Find(e.matcher, name)
			if err != nil {
				e.logger.Printf("WARNING: listed student %s not in roster: %v", name, err)
				continue
			}
			if pointsAt(st.CI, sc, rec.Slot, rec.Name) && !pointsAt(st.Enrollment, sc, rec.Slot, rec.Name) {
				roster.Set(st.Row, schema.TeacherCI, member.Name)
			} else {
				roster.Set(st.Row, schema.Teacher, member.Name)
			}
		}
	}

	p := &steps{op: "assign-staff"}
	if err := p.run("personnel", reg.Save); err != nil {
		return err
	}
	if err := p.run("class", func() error { _, err := schools.save(); return err }); err != nil {
		return err
	}
	if roster != nil {
		if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
			return err
		}
	}

	e.logger.Printf("Assigned %s %s to %s/%s/%s", role.SheetRole(), member.Name, sc.Name, rec.Slot, rec.Name)
	return nil
}

// UnassignStaff implements Syncer.UnassignStaff.
func (e *engine) UnassignStaff(ctx context.Context, s *Session, role store.Role, staff, school, slot, class string) (err error) {
	defer func() {
		e.record(ctx, s, "unassign-staff", fmt.Sprintf("%s %s -x %s/%s/%s", role, staff, school, slot, class), err)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	reg, err := s.Registry()
	if err != nil {
		return fmt.Errorf("failed to load personnel: %w", err)
	}
	member, err := reg.Find(e.matcher, role, staff)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", role.SheetRole(), err)
	}
	reg.RemoveClassFrom(member, class)

	sc, err := s.Catalog.Lookup(school)
	if err != nil {
		return err
	}
	schools := newSchoolSet(s)
	var roster *store.Roster
	sch, err := schools.get(sc.Key)
	if err == nil {
		var rec store.ClassRecord
		rec, err = sch.Class(slot, class)
		if err == nil {
			if _, err := sch.UnsetStaff(e.matcher, rec.Slot, rec.Name, role.SheetRole(), member.Name); err != nil {
				return err
			}
			if role == store.Professeurs {
				if roster, err = s.Roster(); err != nil {
					return fmt.Errorf("failed to load roster: %w", err)
				}
				clearTeacher(roster, sc, rec, member.Name)
			}
		}
	}
	if err != nil {
		if !isStale(err) {
			return err
		}
		e.logger.Printf("WARNING: class row of %s/%s/%s not updated: %v", school, slot, class, err)
	}

	p := &steps{op: "unassign-staff"}
	if err := p.run("personnel", reg.Save); err != nil {
		return err
	}
	if err := p.run("class", func() error { _, err := schools.save(); return err }); err != nil {
		return err
	}
	if roster != nil {
		if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
			return err
		}
	}

	e.logger.Printf("Unassigned %s %s from %s/%s/%s", role.SheetRole(), member.Name, sc.Name, slot, class)
	return nil
}

// clearTeacher empties the teacher field of rows placed in rec that name
// teacher.
func clearTeacher(roster *store.Roster, sc catalog.School, rec store.ClassRecord, teacher string) {
	for _, st := range roster.Students() {
		if pointsAt(st.Enrollment, sc, rec.Slot, rec.Name) && match.SameName(st.Teacher, teacher) {
			roster.Set(st.Row, schema.Teacher, "")
		}
		if pointsAt(st.CI, sc, rec.Slot, rec.Name) && match.SameName(st.CI.Teacher, teacher) {
			roster.Set(st.Row, schema.TeacherCI, "")
		}
	}
}

// loadOrCreateRegistry returns the week registry, or a new empty one when
// the file does not exist yet.
func loadOrCreateRegistry(s *Session) (*store.Registry, error) {
	reg, err := s.Registry()
	if store.IsNotFound(err) {
		return store.NewRegistry(s.Week.PersonnelPath()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	return reg, nil
}

// AddStaff implements Syncer.AddStaff.
func (e *engine) AddStaff(ctx context.Context, s *Session, role store.Role, name string) (added bool, err error) {
	defer func() { e.record(ctx, s, "add-staff", fmt.Sprintf("%s %s", role, name), err) }()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%s name is required", role.SheetRole())
	}

	reg, err := loadOrCreateRegistry(s)
	if err != nil {
		return false, err
	}
	if _, added = reg.Add(role, name); !added {
		return false, nil
	}
	if err := reg.Save(); err != nil {
		return false, fmt.Errorf("failed to save personnel: %w", err)
	}
	e.logger.Printf("Added %s %s", role.SheetRole(), name)
	return true, nil
}

// RemoveStaff implements Syncer.RemoveStaff.
func (e *engine) RemoveStaff(ctx context.Context, s *Session, role store.Role, name string) (err error) {
	defer func() { e.record(ctx, s, "remove-staff", fmt.Sprintf("%s %s", role, name), err) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	reg, err := s.Registry()
	if err != nil {
		return fmt.Errorf("failed to load personnel: %w", err)
	}
	member, err := reg.Remove(e.matcher, role, name)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", role.SheetRole(), err)
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("failed to save personnel: %w", err)
	}
	if len(member.Classes) > 0 {
		e.logger.Printf("WARNING: %s %s still owned %d classes", role.SheetRole(), member.Name, len(member.Classes))
	}
	e.logger.Printf("Removed %s %s", role.SheetRole(), member.Name)
	return nil
}

// ImportPersonnel implements Syncer.ImportPersonnel.
func (e *engine) ImportPersonnel(ctx context.Context, s *Session, source *week.Week, role store.Role) (added int, err error) {
	defer func() { e.record(ctx, s, "import-personnel", fmt.Sprintf("%s from %s", role, source.Name()), err) }()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	src, err := store.LoadRegistry(source.PersonnelPath())
	if err != nil {
		return 0, fmt.Errorf("failed to load source personnel: %w", err)
	}
	reg, err := loadOrCreateRegistry(s)
	if err != nil {
		return 0, err
	}
	for _, name := range src.Names(role) {
		if _, ok := reg.Add(role, name); ok {
			added++
		}
	}
	reg.SortByName(role)
	if err := reg.Save(); err != nil {
		return 0, fmt.Errorf("failed to save personnel: %w", err)
	}
	e.logger.Printf("Imported %d %s from %s", added, role, source.Name())
	return added, nil
}

// ClearStaffClasses implements Syncer.ClearStaffClasses.
func (e *engine) ClearStaffClasses(ctx context.Context, s *Session) (changed int, err error) {
	defer func() { e.record(ctx, s, "clear-staff-classes", "", err) }()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	reg, err := s.Registry()
	if err != nil {
		return 0, fmt.Errorf("failed to load personnel: %w", err)
	}
	changed = reg.ClearClasses()
	if err := reg.Save(); err != nil {
		return 0, fmt.Errorf("failed to save personnel: %w", err)
	}
	e.logger.Printf("Cleared class lists of %d staff members", changed)
	return changed, nil
}
