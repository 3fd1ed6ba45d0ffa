package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/store"
)

// createForPlacement adds the class a roster placement names to its slot
// sheet, with the student's level, and lists the student in it.
func (e *engine) createForPlacement(sch *store.SchoolStore, enr store.Enrollment, st store.Student) (bool, error) {
	if err := validateClassName(enr.Class); err != nil {
		return false, err
	}
	if _, err := sch.CreateClass(enr.Slot, enr.Class, st.Level); err != nil {
		return false, err
	}
	e.logger.Printf("Created class %s/%s/%s for %s", sch.Name, enr.Slot, enr.Class, st.Name)
	return sch.AddStudent(enr.Slot, enr.Class, st.Name)
}

// Reconcile implements Syncer.Reconcile.
func (e *engine) Reconcile(ctx context.Context, s *Session, opts ReconcileOptions) (report *ReconcileReport, err error) {
	defer func() {
		detail := ""
		if report != nil {
			detail = fmt.Sprintf("rows=%d added=%d created=%d skipped=%d pruned=%d",
				report.Rows, report.Added, report.Created, report.Skipped, report.Pruned)
		}
		e.record(ctx, s, "reconcile", detail, err)
	}()

	roster, err := s.Roster()
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	report = &ReconcileReport{}
	schools := newSchoolSet(s)
	students := roster.Students()

	for _, st := range students {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		for _, enr := range []store.Enrollment{st.Enrollment, st.CI} {
			if !enr.Placed() {
				continue
			}
			report.Rows++

			sch, err := schools.get(enr.School)
			if err != nil {
				if !isStale(err) {
					return report, fmt.Errorf("failed to load school %s: %w", enr.School, err)
				}
				e.logger.Printf("WARNING: skipping %s: %v", st.Name, err)
				report.Skipped++
				continue
			}
			added, err := sch.AddStudent(enr.Slot, enr.Class, st.Name)
			if errors.Is(err, store.ErrClassNotFound) {
				added, err = e.createForPlacement(sch, enr, st)
				if err == nil {
					report.Created++
				}
			}
			if err != nil {
				e.logger.Printf("WARNING: skipping %s: %v", st.Name, err)
				report.Skipped++
				continue
			}
			if added {
				report.Added++
			}
		}
	}

	if opts.Prune {
		if err := e.prune(s, schools, students, report); err != nil {
			return report, err
		}
	}

	failed, err := schools.save()
	report.Failed = failed
	if err != nil {
		e.logger.Printf("WARNING: failed to save %d school stores", len(failed))
		return report, fmt.Errorf("failed to save school stores: %w", err)
	}

	e.logger.Printf("Reconcile complete: rows=%d added=%d created=%d skipped=%d pruned=%d",
		report.Rows, report.Added, report.Created, report.Skipped, report.Pruned)
	return report, nil
}

// prune drops class list entries whose roster row is placed elsewhere.
// Names with no roster row are kept.
func (e *engine) prune(s *Session, schools *schoolSet, students []store.Student, report *ReconcileReport) error {
	byName := make(map[string][]store.Student, len(students))
	for _, st := range students {
		key := match.Normalize(st.Name)
		byName[key] = append(byName[key], st)
	}

	stores, err := schools.all()
	if err != nil {
		return fmt.Errorf("failed to load schools: %w", err)
	}
	for _, sch := range stores {
		sc, err := s.Catalog.Lookup(sch.Name)
		if err != nil {
			return err
		}
		for _, rec := range sch.Classes() {
			dropped, err := sch.RetainStudents(rec.Slot, rec.Name, func(name string) bool {
				rows, ok := byName[match.Normalize(name)]
				if !ok {
					return true
				}
				for _, st := range rows {
					if pointsAt(st.Enrollment, sc, rec.Slot, rec.Name) || pointsAt(st.CI, sc, rec.Slot, rec.Name) {
						return true
					}
				}
				return false
			})
			if err != nil {
				e.logger.Printf("WARNING: cannot prune %s/%s/%s: %v", sch.Name, rec.Slot, rec.Name, err)
				continue
			}
			for _, name := range dropped {
				e.logger.Printf("Pruned %s from %s/%s/%s", name, sch.Name, rec.Slot, rec.Name)
			}
			report.Pruned += len(dropped)
		}
	}
	return nil
}
