package schema

import (
	"regexp"
	"strings"
	"unicode"
)

// Field names a semantic column.
type Field string

// Roster fields.
const (
	Student   Field = "stagiaire"
	Age       Field = "age"
	Level     Field = "niveau"
	School    Field = "ecole"
	Slot      Field = "horaire"
	Class     Field = "classe"
	Teacher   Field = "prof"
	Start     Field = "debut"
	End       Field = "fin"
	SchoolCI  Field = "ecole_ci"
	SlotCI    Field = "horaire_ci"
	ClassCI   Field = "classe_ci"
	TeacherCI Field = "prof_ci"
	StartCI   Field = "debut_ci"
	EndCI     Field = "fin_ci"
)

// Class sheet fields.
const (
	ClassName   Field = "classe"
	StudentList Field = "eleves"
	ClassLevel  Field = "niveau"
	Intervenant Field = "intervenant"
	Animator    Field = "animateur"
	Headcount   Field = "effectif"
)

// Predicate reports whether a normalized header should be skipped.
type Predicate func(header string) bool

// FieldSpec is one row of a mapping table.
type FieldSpec struct {
	Field    Field
	Title    string // header written when the column has to be created
	Keywords []string
	Exclude  []Predicate
	Required bool

	// Fallback is the column used when nothing matches; -1 for none.
	Fallback int
}

// Table is an ordered mapping table. Fields earlier in the table get first
// pick of the columns.
type Table []FieldSpec

// Lookup returns the spec for f.
func (t Table) Lookup(f Field) (FieldSpec, bool) {
	for _, spec := range t {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

var (
	secondTrack = regexp.MustCompile(`cours [2-9]|\.[1-9]$`)
	ciToken     = regexp.MustCompile(`(^|[^\pL])ci($|[^\pL])`)
)

// ExcludeSecondTrack skips headers that belong to the CI enrollment.
func ExcludeSecondTrack(h string) bool {
	return secondTrack.MatchString(h) || ciToken.MatchString(h)
}

// ExcludeDates skips the primary-track date columns.
func ExcludeDates(h string) bool {
	return strings.Contains(h, "cours 1") ||
		strings.Contains(h, "arrivée") || strings.Contains(h, "arrivee") ||
		strings.Contains(h, "départ") || strings.Contains(h, "depart")
}

// ExcludeDigits skips headers containing a digit.
func ExcludeDigits(h string) bool {
	return strings.IndexFunc(h, unicode.IsDigit) >= 0
}

// ExcludeContaining returns a predicate skipping headers with any of words.
func ExcludeContaining(words ...string) Predicate {
	return func(h string) bool {
		for _, w := range words {
			if strings.Contains(h, w) {
				return true
			}
		}
		return false
	}
}

var primary = []Predicate{ExcludeSecondTrack, ExcludeDates}

// RosterTable describes the roster workbook.
var RosterTable = Table{
	{Field: Student, Title: "Stagiaire", Keywords: []string{"stagiaire", "nom", "name", "élève", "eleve"}, Exclude: primary, Required: true, Fallback: -1},
	{Field: Age, Title: "Âge", Keywords: []string{"âge", "age"}, Exclude: primary, Fallback: -1},
	{Field: Level, Title: "Niveau", Keywords: []string{"niveau", "level"}, Exclude: append([]Predicate{ExcludeDigits}, primary...), Fallback: -1},
	{Field: School, Title: "Ecole", Keywords: []string{"ecole", "école", "school"}, Exclude: primary, Fallback: -1},
	{Field: Slot, Title: "Horaire", Keywords: []string{"horaire", "heure", "time", "schedule"}, Exclude: primary, Fallback: -1},
	{Field: Class, Title: "Classe", Keywords: []string{"classe", "class", "groupe"}, Exclude: primary, Fallback: -1},
	{Field: Teacher, Title: "Prof", Keywords: []string{"prof", "professeur", "enseignant"}, Exclude: primary, Fallback: -1},
	{Field: Start, Title: "Cours 1 du", Keywords: []string{"cours 1 du", "départ", "depart"}, Exclude: []Predicate{ExcludeSecondTrack}, Fallback: -1},
	{Field: End, Title: "Cours 1 au", Keywords: []string{"cours 1 au", "arrivée", "arrivee"}, Exclude: []Predicate{ExcludeSecondTrack}, Fallback: -1},
	{Field: StartCI, Title: "Cours 2 du", Keywords: []string{"cours 2 du", "départ ci", "depart ci"}, Fallback: -1},
	{Field: EndCI, Title: "Cours 2 au", Keywords: []string{"cours 2 au", "arrivée ci", "arrivee ci"}, Fallback: -1},
	{Field: SchoolCI, Title: "Ecole CI", Keywords: []string{"ecole ci", "école ci", "cours 2"}, Fallback: -1},
	{Field: SlotCI, Title: "Horaire CI", Keywords: []string{"horaire ci"}, Fallback: -1},
	{Field: ClassCI, Title: "Classe CI", Keywords: []string{"classe ci", "classe_ci"}, Fallback: -1},
	{Field: TeacherCI, Title: "Prof CI", Keywords: []string{"prof ci", "professeur ci", "prof_ci"}, Fallback: -1},
}

// ClassTable describes one slot sheet of a school workbook.
var ClassTable = Table{
	{Field: StudentList, Title: "Liste des élèves", Keywords: []string{"liste", "élèves", "eleves", "noms"}, Exclude: []Predicate{ExcludeContaining("nombre", "effectif")}, Required: true, Fallback: -1},
	{Field: ClassName, Title: "Classe", Keywords: []string{"classe", "groupe", "section"}, Fallback: 0},
	{Field: ClassLevel, Title: "Niveau", Keywords: []string{"niveau", "level"}, Fallback: -1},
	{Field: Animator, Title: "Animateur", Keywords: []string{"animateur"}, Fallback: -1},
	{Field: Intervenant, Title: "Intervenant", Keywords: []string{"intervenant", "professeur", "prof", "enseignant", "rôle", "role"}, Fallback: -1},
	{Field: Headcount, Title: "Effectif", Keywords: []string{"effectif", "nombre", "nb"}, Fallback: -1},
}

// DefaultClassHeader is written to an empty slot sheet before its first class.
var DefaultClassHeader = []string{"Classe", "Intervenant", "Niveau", "Liste des élèves"}
