package sync

import (
	"context"

	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/week"
)

// Assignment places a student in a class.
type Assignment struct {
	Student string
	School  string
	Slot    string
	Class   string

	// Teacher is optional. When empty the class's current teacher is
	// copied to the roster.
	Teacher string
}

// ReconcileOptions tune a full roster to class push.
type ReconcileOptions struct {
	// Prune removes list entries whose roster row points at another class.
	Prune bool
}

// ReconcileReport summarizes a reconciliation pass.
type ReconcileReport struct {
	Rows    int      `json:"rows" yaml:"rows"`
	Added   int      `json:"added" yaml:"added"`
	Created int      `json:"created" yaml:"created"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	Pruned  int      `json:"pruned" yaml:"pruned"`
	Failed  []string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// DeleteReport summarizes a class deletion.
type DeleteReport struct {
	// Found is false when no class row was left to remove.
	Found     bool     `json:"found" yaml:"found"`
	Classes   []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	Students  []string `json:"students" yaml:"students"`
	Cleared   int      `json:"cleared" yaml:"cleared"`
	Personnel int      `json:"personnel" yaml:"personnel"`
}

// Imported lists the fields copied for one student by ImportWeek.
type Imported struct {
	Student string                  `json:"student" yaml:"student"`
	Fields  map[schema.Field]string `json:"fields" yaml:"fields"`
}

// ImportFields are the roster fields ImportWeek can copy.
var ImportFields = []schema.Field{schema.Level, schema.School, schema.Slot, schema.Class}

// Syncer keeps the roster, the school workbooks and the personnel registry
// of a week consistent with each other.
//
// Every operation is idempotent: running it again with the same arguments
// changes nothing. Each loads the stores it needs, applies the change in
// memory and saves only the stores that changed. Multi-store operations
// return a *StepError when a save fails after earlier saves succeeded.
//
// Single-student operations return *match.MissError when the student cannot
// be found. Batch operations (Reconcile, ImportWeek) log misses and carry on.
type Syncer interface {
	// Assign writes the school, slot and class of a student to the roster
	// and adds the roster name to the class's student list.
	//
	// The student is located with the matcher. The class must exist in the
	// school workbook; the roster receives its canonical slot and class
	// labels. If the student was listed in a different class, the name is
	// removed from that list. A supplied teacher is written both to the
	// roster and to the class intervenant column; otherwise the class's
	// current teacher is copied to the roster.
	//
	// Example:
	//   err := syncer.Assign(ctx, sess, sync.Assignment{
	//       Student: "Dupont Marie", School: "A", Slot: "8h30", Class: "C1"})
	Assign(ctx context.Context, s *Session, a Assignment) error

	// Unassign clears the school, slot, class and teacher of a student and
	// removes the name from the class list the previous values pointed at.
	//
	// Returns the enrollment that was cleared. Unassigning a student with
	// no placement is a no-op.
	Unassign(ctx context.Context, s *Session, student string) (store.Enrollment, error)

	// RenameClass renames a class in its slot sheet, in every roster row
	// pointing at it and in every staff class list.
	//
	// The new name must be non-empty, not purely numeric and unused in the
	// slot. Re-running after success is a no-op.
	RenameClass(ctx context.Context, s *Session, school, slot, oldName, newName string) error

	// DeleteClass removes a class in three steps, saved in this order:
	//   1. roster: clear school, slot and class of the listed students and
	//      of any row still pointing at the class;
	//   2. class: remove the class row;
	//   3. personnel: remove the class from every staff list.
	//
	// A class row already gone still runs steps 1 and 3.
	DeleteClass(ctx context.Context, s *Session, school, slot, class string) (*DeleteReport, error)

	// DeleteSlotClasses removes every class of a slot sheet with the same
	// steps and save order as DeleteClass.
	DeleteSlotClasses(ctx context.Context, s *Session, school, slot string) (*DeleteReport, error)

	// SetClassLevel rewrites the level cell of a class row. It returns false
	// when the level was already set.
	SetClassLevel(ctx context.Context, s *Session, school, slot, class, level string) (bool, error)

	// CreateClass adds a class row to the slot sheet. An existing class is a
	// no-op and returns false.
	CreateClass(ctx context.Context, s *Session, school, slot, class, level string) (bool, error)

	// AddStudent appends a roster row. A student with the same normalized
	// name is a no-op and returns false.
	AddStudent(ctx context.Context, s *Session, name, age, level string) (bool, error)

	// DeleteStudent removes a student from the class lists of both tracks
	// and then deletes the roster row.
	DeleteStudent(ctx context.Context, s *Session, name string) error

	// ImportWeek copies fields from the roster of source into empty fields
	// of matching students. Students match by normalized name; a field
	// that already has a value is never overwritten.
	//
	// Returns ErrEmptySource when the source roster has no student rows.
	ImportWeek(ctx context.Context, s *Session, source *week.Week, fields []schema.Field) ([]Imported, error)

	// Reconcile pushes every roster placement, on both tracks, to the
	// class lists. The roster itself is never written.
	//
	// A placement naming a class with no row in its slot sheet creates the
	// row, with the student's level, and counts in Created. Placements that
	// still cannot be listed count in Skipped.
	//
	// Failed school saves are listed in the report and the first one is
	// returned, so a locked workbook surfaces as store.ErrLocked.
	Reconcile(ctx context.Context, s *Session, opts ReconcileOptions) (*ReconcileReport, error)

	// AssignStaff gives a class to a staff member: the class joins the
	// staff list and the staff name is written to the class row. For a
	// professeur the teacher field of the listed students is updated too.
	AssignStaff(ctx context.Context, s *Session, role store.Role, staff, school, slot, class string) error

	// UnassignStaff takes a class away from a staff member and writes the
	// unspecified placeholder where the class row names them.
	UnassignStaff(ctx context.Context, s *Session, role store.Role, staff, school, slot, class string) error

	// AddStaff registers a staff member, creating the registry if needed.
	AddStaff(ctx context.Context, s *Session, role store.Role, name string) (bool, error)

	// RemoveStaff deletes a staff member from the registry.
	RemoveStaff(ctx context.Context, s *Session, role store.Role, name string) error

	// ImportPersonnel adds the staff of role listed in source's registry
	// and missing here, without their classes. Returns how many were added.
	ImportPersonnel(ctx context.Context, s *Session, source *week.Week, role store.Role) (int, error)

	// ClearClassStores empties every student list and class level of every
	// school workbook. Returns how many classes changed.
	ClearClassStores(ctx context.Context, s *Session) (int, error)

	// ClearStaffClasses empties every staff class list. Returns how many
	// staff members changed.
	ClearStaffClasses(ctx context.Context, s *Session) (int, error)

	// Stats summarizes the roster.
	Stats(ctx context.Context, s *Session) (store.Stats, error)
}
