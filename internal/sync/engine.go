package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode"

	"github.com/ecoles/roster/internal/journal"
	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
)

// Config holds the collaborators of the engine.
type Config struct {
	// Matcher resolves names across stores. Defaults to match.Default().
	Matcher match.Matcher

	// Logger receives progress and warnings. Defaults to stderr.
	Logger *log.Logger

	// Recorder, when set, journals every operation.
	Recorder journal.Recorder
}

// DefaultConfig returns a configuration with the default matcher and a
// stderr logger.
func DefaultConfig() *Config {
	return &Config{
		Matcher: match.Default(),
		Logger:  log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// engine implements the Syncer interface.
type engine struct {
	matcher  match.Matcher
	logger   *log.Logger
	recorder journal.Recorder
}

// New creates a Syncer. A nil cfg, or nil fields in it, take the values of
// DefaultConfig.
//
// Example:
//
//	w, err := week.Open("/data/weeks", 0)
//	if err != nil {
//	    return err
//	}
//	syncer := sync.New(nil)
//	err = syncer.Assign(ctx, sync.NewSession(w, nil, nil), sync.Assignment{
//	    Student: "Dupont Marie", School: "A", Slot: "8h30", Class: "C1"})
func New(cfg *Config) Syncer {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	e := &engine{matcher: cfg.Matcher, logger: cfg.Logger, recorder: cfg.Recorder}
	if e.matcher == nil {
		e.matcher = def.Matcher
	}
	if e.logger == nil {
		e.logger = def.Logger
	}
	return e
}

// record journals an operation outcome. Journal failures are logged only.
func (e *engine) record(ctx context.Context, s *Session, op, detail string, err error) {
	if e.recorder == nil {
		return
	}
	entry := journal.Entry{Week: s.Week.Name(), Op: op, Detail: detail, Status: journal.StatusOK}
	if err != nil {
		entry.Status = journal.StatusFailed
		if IsPartial(err) {
			entry.Status = journal.StatusPartial
		}
		entry.Error = err.Error()
	}
	if rerr := e.recorder.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		e.logger.Printf("WARNING: failed to journal %s: %v", op, rerr)
	}
}

// isStale reports errors that mean a store no longer holds what another
// store points at. Propagation logs these and carries on.
func isStale(err error) bool {
	return errors.Is(err, store.ErrClassNotFound) ||
		errors.Is(err, store.ErrSheetNotFound) ||
		errors.Is(err, ErrUnknownSchool) ||
		errors.Is(err, match.ErrNoMatch) ||
		store.IsNotFound(err)
}

// validateClassName rejects empty and purely numeric names.
func validateClassName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidClassName)
	}
	if strings.IndexFunc(name, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return fmt.Errorf("%w: %q is only digits", ErrInvalidClassName, name)
	}
	return nil
}

func (e *engine) checkLevel(level string) {
	if level = strings.TrimSpace(level); level != "" && !store.KnownLevel(level) {
		e.logger.Printf("WARNING: level %q is not in the level catalogue", level)
	}
}

// removeFromClass drops name from the class list enr points at.
func (e *engine) removeFromClass(schools *schoolSet, enr store.Enrollment, name string) error {
	sch, err := schools.get(enr.School)
	if err != nil {
		return err
	}
	_, err = sch.RemoveStudent(e.matcher, enr.Slot, enr.Class, name)
	return err
}

// Assign implements Syncer.Assign.
func (e *engine) Assign(ctx context.Context, s *Session, a Assignment) (err error) {
	defer func() {
		e.record(ctx, s, "assign", fmt.Sprintf("%s -> %s/%s/%s", a.Student, a.School, a.Slot, a.Class), err)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	sc, err := s.Catalog.Lookup(a.School)
	if err != nil {
		return err
	}
	roster, err := s.Roster()
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	st, err := roster.Find(e.matcher, a.Student)
	if err != nil {
		return fmt.Errorf("failed to find student: %w", err)
	}

	schools := newSchoolSet(s)
	target, err := schools.get(sc.Key)
	if err != nil {
		return fmt.Errorf("failed to load school %s: %w", sc.Name, err)
	}
	rec, err := target.Class(a.Slot, a.Class)
	if err != nil {
		return err
	}

	teacher := strings.TrimSpace(a.Teacher)
	if teacher == "" {
		teacher = rec.Teacher
	}

	prev := st.Enrollment
	roster.SetPlacement(st.Row, sc.Name, rec.Slot, rec.Name)
	roster.Set(st.Row, schema.Teacher, teacher)

	if prev.Placed() && !pointsAt(prev, sc, rec.Slot, rec.Name) {
		if err := e.removeFromClass(schools, prev, st.Name); err != nil {
			if !isStale(err) {
				return fmt.Errorf("failed to update previous class: %w", err)
			}
			e.logger.Printf("WARNING: previous class of %s not updated: %v", st.Name, err)
		}
	}

	if _, err := target.AddStudent(rec.Slot, rec.Name, st.Name); err != nil {
		return err
	}
	if a.Teacher != "" {
		if _, err := target.SetStaff(rec.Slot, rec.Name, schema.RoleProfesseur, teacher); err != nil {
			return err
		}
	}

	p := &steps{op: "assign"}
	if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
		return err
	}
	if err := p.run("classes", func() error { _, err := schools.save(); return err }); err != nil {
		return err
	}

	e.logger.Printf("Assigned %s to %s/%s/%s", st.Name, sc.Name, rec.Slot, rec.Name)
	return nil
}

// Unassign implements Syncer.Unassign.
func (e *engine) Unassign(ctx context.Context, s *Session, student string) (prev store.Enrollment, err error) {
	defer func() { e.record(ctx, s, "unassign", student, err) }()
	if err := ctx.Err(); err != nil {
		return prev, err
	}

	roster, err := s.Roster()
	if err != nil {
		return prev, fmt.Errorf("failed to load roster: %w", err)
	}
	st, err := roster.Find(e.matcher, student)
	if err != nil {
		return prev, fmt.Errorf("failed to find student: %w", err)
	}
	prev = st.Enrollment

	roster.SetPlacement(st.Row, "", "", "")
	roster.Set(st.Row, schema.Teacher, "")

	schools := newSchoolSet(s)
	if prev.Placed() {
		if err := e.removeFromClass(schools, prev, st.Name); err != nil {
			if !isStale(err) {
				return prev, fmt.Errorf("failed to update class list: %w", err)
			}
			e.logger.Printf("WARNING: class of %s not updated: %v", st.Name, err)
		}
	}

	p := &steps{op: "unassign"}
	if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
		return prev, err
	}
	if err := p.run("classes", func() error { _, err := schools.save(); return err }); err != nil {
		return prev, err
	}

	if prev.Placed() {
		e.logger.Printf("Unassigned %s from %s/%s/%s", st.Name, prev.School, prev.Slot, prev.Class)
	}
	return prev, nil
}

// AddStudent implements Syncer.AddStudent.
func (e *engine) AddStudent(ctx context.Context, s *Session, name, age, level string) (added bool, err error) {
	defer func() { e.record(ctx, s, "add-student", name, err) }()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("student name is required")
	}

	roster, err := s.Roster()
	if err != nil {
		return false, fmt.Errorf("failed to load roster: %w", err)
	}
	if existing, ok := roster.Lookup(name); ok {
		e.logger.Printf("Student %s already on row %d", existing.Name, existing.Row)
		return false, nil
	}
	e.checkLevel(level)
	roster.Append(name, age, level)
	if err := roster.Save(s.Backend); err != nil {
		return false, fmt.Errorf("failed to save roster: %w", err)
	}
	e.logger.Printf("Added student %s", name)
	return true, nil
}

// DeleteStudent implements Syncer.DeleteStudent.
func (e *engine) DeleteStudent(ctx context.Context, s *Session, name string) (err error) {
	defer func() { e.record(ctx, s, "delete-student", name, err) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	roster, err := s.Roster()
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	st, err := roster.Find(e.matcher, name)
	if err != nil {
		return fmt.Errorf("failed to find student: %w", err)
	}

	schools := newSchoolSet(s)
	for _, enr := range []store.Enrollment{st.Enrollment, st.CI} {
		if !enr.Placed() {
			continue
		}
		if err := e.removeFromClass(schools, enr, st.Name); err != nil {
			if !isStale(err) {
				return fmt.Errorf("failed to update class list: %w", err)
			}
			e.logger.Printf("WARNING: class list of %s not updated: %v", st.Name, err)
		}
	}
	roster.Remove(st.Row)

	p := &steps{op: "delete-student"}
	if err := p.run("classes", func() error { _, err := schools.save(); return err }); err != nil {
		return err
	}
	if err := p.run("roster", func() error { return roster.Save(s.Backend) }); err != nil {
		return err
	}

	e.logger.Printf("Deleted student %s", st.Name)
	return nil
}

// Stats implements Syncer.Stats.
func (e *engine) Stats(ctx context.Context, s *Session) (store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return store.Stats{}, err
	}
	roster, err := s.Roster()
	if err != nil {
		return store.Stats{}, fmt.Errorf("failed to load roster: %w", err)
	}
	return roster.Stats(), nil
}
