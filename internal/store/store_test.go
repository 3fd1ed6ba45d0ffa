package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
)

func rosterFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	writeBook(t, path, &Sheet{Name: "Feuil1", Rows: [][]string{
		{"Stagiaire", "Âge", "Niveau", "Ecole", "Horaire", "Classe", "Prof", "Classe CI"},
		{"Dupont Marie", "12", "A1", "A", "8h30", "C1", "Durand", ""},
		{"Martin Léa", "14", "nan", "", "", "", "", "CI-2"},
		{"", "", "", "", "", "", "", ""},
		{"Bernard Paul", "11", "B1", "A", "8h30", "", "", ""},
	}})
	return path
}

func TestLoadRoster(t *testing.T) {
	r, err := LoadRoster(testBackend(), rosterFixture(t))
	if err != nil {
		t.Fatalf("LoadRoster() failed: %v", err)
	}

	students := r.Students()
	if len(students) != 3 {
		t.Fatalf("got %d students, want 3", len(students))
	}

	marie := students[0]
	want := Student{
		Row: 1, Name: "Dupont Marie", Age: "12", Level: "A1",
		Enrollment: Enrollment{School: "A", Slot: "8h30", Class: "C1", Teacher: "Durand"},
	}
	if !reflect.DeepEqual(marie, want) {
		t.Errorf("students[0] = %+v, want %+v", marie, want)
	}

	lea := students[1]
	if lea.Level != "" {
		t.Errorf("nan level should read empty, got %q", lea.Level)
	}
	if lea.CI.Class != "CI-2" {
		t.Errorf("CI class = %q, want %q", lea.CI.Class, "CI-2")
	}
	if students[2].Row != 4 {
		t.Errorf("blank rows must keep row numbering, got row %d", students[2].Row)
	}
}

func TestLoadRosterSchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	writeBook(t, path, &Sheet{Name: "Sheet1", Rows: [][]string{{"Âge", "Classe"}, {"12", "C1"}}})

	_, err := LoadRoster(testBackend(), path)
	if !errors.Is(err, schema.ErrSchema) {
		t.Fatalf("LoadRoster() error = %v, want ErrSchema", err)
	}
}

func TestRosterFindAndSet(t *testing.T) {
	path := rosterFixture(t)
	b := testBackend()
	r, err := LoadRoster(b, path)
	if err != nil {
		t.Fatalf("LoadRoster() failed: %v", err)
	}

	s, err := r.Find(match.Default(), "martin lea")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if s.Row != 2 {
		t.Errorf("Find() row = %d, want 2", s.Row)
	}

	if _, err := r.Find(match.Default(), "Nguyen"); !errors.Is(err, match.ErrNoMatch) {
		t.Errorf("Find(unknown) error = %v, want ErrNoMatch", err)
	}

	if r.SetPlacement(1, "A", "8h30", "C1") {
		t.Error("writing identical values should not report a change")
	}
	if r.Modified() {
		t.Error("roster should not be modified by no-op writes")
	}

	if !r.SetPlacement(s.Row, "B", "10h", "C9") {
		t.Fatal("SetPlacement() should report a change")
	}
	if err := r.Save(b); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded, err := LoadRoster(b, path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Student(2)
	if got.School != "B" || got.Slot != "10h" || got.Class != "C9" {
		t.Errorf("reloaded placement = %+v", got.Enrollment)
	}
}

func TestRosterSetCreatesMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	writeBook(t, path, &Sheet{Name: "Sheet1", Rows: [][]string{{"Stagiaire"}, {"Alice"}}})

	b := testBackend()
	r, err := LoadRoster(b, path)
	if err != nil {
		t.Fatalf("LoadRoster() failed: %v", err)
	}

	if r.Set(1, schema.Teacher, "") {
		t.Error("clearing an absent column should be a no-op")
	}
	if !r.Set(1, schema.Class, "C1") {
		t.Fatal("Set() should create the class column")
	}
	if err := r.Save(b); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	wb := openBook(t, path)
	if got := wb.Sheets[0].Header(); !reflect.DeepEqual(got, []string{"Stagiaire", "Classe"}) {
		t.Errorf("header = %v", got)
	}
}

func TestRosterAppendRemoveStats(t *testing.T) {
	r, err := LoadRoster(testBackend(), rosterFixture(t))
	if err != nil {
		t.Fatalf("LoadRoster() failed: %v", err)
	}

	added := r.Append("Nouveau Nina", "10", "A0")
	if added.Name != "Nouveau Nina" || added.Level != "A0" {
		t.Errorf("Append() = %+v", added)
	}
	if _, ok := r.Lookup("nouveau  nina"); !ok {
		t.Error("Lookup() should find the appended student")
	}

	st := r.Stats()
	want := Stats{Total: 4, WithoutClass: 3, WithoutLevel: 1, Assigned: 1, ByLevel: map[string]int{"A1": 1, "B1": 1, "A0": 1}}
	if !reflect.DeepEqual(st, want) {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}

	r.Remove(added.Row)
	if _, ok := r.Lookup("Nouveau Nina"); ok {
		t.Error("Remove() should delete the row")
	}
}

func TestSortedLevels(t *testing.T) {
	got := SortedLevels(map[string]int{"B1": 1, "Zeta": 1, "A0": 2, "Alpha": 1})
	want := []string{"A0", "B1", "Alpha", "Zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedLevels() = %v, want %v", got, want)
	}
	if !KnownLevel(" pré-a1 ") {
		t.Error("KnownLevel should ignore case and spaces")
	}
}

func schoolFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecole_a.xlsx")
	writeBook(t, path,
		&Sheet{Name: "8h30 Professeur", Rows: [][]string{
			{"Classe", "Intervenant", "Niveau", "Liste des élèves", "Effectif"},
			{"C1", "Durand", "A1", "Dupont Marie; Bernard Paul", "2"},
			{"C2", "Non spécifié", "B1", "", "0"},
		}},
		&Sheet{Name: "8h30 Animateur", Rows: [][]string{
			{"Classe", "Animateur", "Liste des élèves"},
			{"Atelier", "", "Lina"},
		}},
		&Sheet{Name: "10h Professeur", Rows: [][]string{
			{"Classe", "Notes"},
			{"C5", "x"},
		}},
		&Sheet{Name: "14h Professeur"},
	)
	return path
}

func loadSchool(t *testing.T, path string) *SchoolStore {
	t.Helper()
	s, err := LoadSchool(testBackend(), "A", path)
	if err != nil {
		t.Fatalf("LoadSchool() failed: %v", err)
	}
	return s
}

func TestSchoolClasses(t *testing.T) {
	s := loadSchool(t, schoolFixture(t))

	classes := s.Classes()
	if len(classes) != 3 {
		t.Fatalf("got %d classes, want 3: %+v", len(classes), classes)
	}

	c1 := classes[0]
	want := ClassRecord{
		School: "A", Sheet: "8h30 Professeur", Slot: "8h30", Role: schema.RoleProfesseur,
		Name: "C1", Level: "A1", Teacher: "Durand",
		Students: []string{"Dupont Marie", "Bernard Paul"},
	}
	if !reflect.DeepEqual(c1, want) {
		t.Errorf("classes[0] = %+v, want %+v", c1, want)
	}
	if classes[1].Teacher != "" {
		t.Errorf("placeholder teacher should read empty, got %q", classes[1].Teacher)
	}
	if classes[2].Role != schema.RoleAnimateur {
		t.Errorf("animator sheet role = %q", classes[2].Role)
	}

	if got, want := s.Slots(), []string{"8h30", "10h", "14h"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Slots() = %v, want %v", got, want)
	}
}

func TestSchoolAddRemoveStudent(t *testing.T) {
	path := schoolFixture(t)
	b := testBackend()
	s := loadSchool(t, path)

	changed, err := s.AddStudent("8h30", "C2", "Martin Léa")
	if err != nil || !changed {
		t.Fatalf("AddStudent() = %v, %v; want true, nil", changed, err)
	}
	changed, err = s.AddStudent("8H30 professeur", "c2", " martin  léa ")
	if err != nil || changed {
		t.Errorf("duplicate AddStudent() = %v, %v; want false, nil", changed, err)
	}

	changed, err = s.RemoveStudent(match.Default(), "8h30", "C1", "dupont")
	if err != nil || !changed {
		t.Fatalf("RemoveStudent() = %v, %v; want true, nil", changed, err)
	}
	changed, err = s.RemoveStudent(match.Default(), "8h30", "C1", "Nguyen")
	if err != nil || changed {
		t.Errorf("RemoveStudent(absent) = %v, %v; want false, nil", changed, err)
	}

	if err := s.Save(b); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	wb := openBook(t, path)
	sheet := wb.Sheet("8h30 Professeur")
	if got := sheet.Cell(1, 3); got != "Bernard Paul" {
		t.Errorf("C1 list = %q, want %q", got, "Bernard Paul")
	}
	if got := sheet.Cell(1, 4); got != "1" {
		t.Errorf("C1 headcount = %q, want 1", got)
	}
	if got := sheet.Cell(2, 3); got != "Martin Léa" {
		t.Errorf("C2 list = %q, want %q", got, "Martin Léa")
	}
}

func TestSchoolLookupErrors(t *testing.T) {
	s := loadSchool(t, schoolFixture(t))

	if _, err := s.Class("8h30", "C9"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("Class(unknown) error = %v, want ErrClassNotFound", err)
	}
	if _, err := s.Class("18h", "C1"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Class(unknown slot) error = %v, want ErrSheetNotFound", err)
	}
	// The 10h sheet has no student-list column: only operations on it fail.
	if _, err := s.Class("10h", "C5"); !errors.Is(err, schema.ErrSchema) {
		t.Errorf("Class(on malformed sheet) error = %v, want ErrSchema", err)
	}
}

func TestSchoolRenameDeleteCreate(t *testing.T) {
	s := loadSchool(t, schoolFixture(t))

	if _, err := s.RenameClass("8h30", "C1", "C2"); !errors.Is(err, ErrClassExists) {
		t.Errorf("RenameClass(onto existing) error = %v, want ErrClassExists", err)
	}
	if changed, err := s.RenameClass("8h30", "C1", "C3"); err != nil || !changed {
		t.Fatalf("RenameClass() = %v, %v", changed, err)
	}
	if changed, err := s.RenameClass("8h30", "C1", "C3"); err != nil || changed {
		t.Errorf("repeated RenameClass() = %v, %v; want false, nil", changed, err)
	}

	students, err := s.DeleteClass("8h30", "C3")
	if err != nil {
		t.Fatalf("DeleteClass() failed: %v", err)
	}
	if !reflect.DeepEqual(students, []string{"Dupont Marie", "Bernard Paul"}) {
		t.Errorf("DeleteClass() students = %v", students)
	}
	if _, err := s.DeleteClass("8h30", "C3"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("repeated DeleteClass() error = %v, want ErrClassNotFound", err)
	}

	created, err := s.CreateClass("14h", "C7", "A2")
	if err != nil || !created {
		t.Fatalf("CreateClass() on empty sheet = %v, %v", created, err)
	}
	rec, err := s.Class("14h", "C7")
	if err != nil {
		t.Fatalf("Class() after create failed: %v", err)
	}
	if rec.Level != "A2" || rec.Teacher != "" || len(rec.Students) != 0 {
		t.Errorf("created record = %+v", rec)
	}
	if created, _ := s.CreateClass("14h", "c7", "B1"); created {
		t.Error("CreateClass() should be a no-op for an existing class")
	}
}

func TestSchoolSlotClassesAndLevel(t *testing.T) {
	s := loadSchool(t, schoolFixture(t))

	recs, err := s.SlotClasses("8h30")
	if err != nil {
		t.Fatalf("SlotClasses() failed: %v", err)
	}
	var names []string
	for _, rec := range recs {
		names = append(names, rec.Name)
	}
	if want := []string{"C1", "C2", "Atelier"}; !reflect.DeepEqual(names, want) {
		t.Errorf("SlotClasses(8h30) = %v, want %v", names, want)
	}
	if recs, err := s.SlotClasses("14h"); err != nil || len(recs) != 0 {
		t.Errorf("SlotClasses(empty sheet) = %v, %v; want none", recs, err)
	}
	if _, err := s.SlotClasses("18h"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("SlotClasses(unknown slot) error = %v, want ErrSheetNotFound", err)
	}

	changed, err := s.SetLevel("8h30", "C2", " A2 ")
	if err != nil || !changed {
		t.Fatalf("SetLevel() = %v, %v; want true, nil", changed, err)
	}
	if changed, err := s.SetLevel("8h30", "c2", "A2"); err != nil || changed {
		t.Errorf("repeated SetLevel() = %v, %v; want false, nil", changed, err)
	}
	if rec, _ := s.Class("8h30", "C2"); rec.Level != "A2" {
		t.Errorf("C2 level = %q, want A2", rec.Level)
	}
	if _, err := s.SetLevel("8h30", "C9", "A1"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("SetLevel(unknown) error = %v, want ErrClassNotFound", err)
	}
}

func TestSchoolStaffColumns(t *testing.T) {
	s := loadSchool(t, schoolFixture(t))

	if changed, err := s.SetStaff("8h30", "C2", schema.RoleProfesseur, "Petit"); err != nil || !changed {
		t.Fatalf("SetStaff() = %v, %v", changed, err)
	}
	if changed, err := s.SetStaff("8h30", "Atelier", schema.RoleAnimateur, "Roux"); err != nil || !changed {
		t.Fatalf("SetStaff(animateur) = %v, %v", changed, err)
	}

	rec, _ := s.Class("8h30", "C2")
	if rec.Teacher != "Petit" {
		t.Errorf("teacher = %q, want Petit", rec.Teacher)
	}
	rec, _ = s.Class("8h30", "Atelier")
	if rec.Animator != "Roux" {
		t.Errorf("animator = %q, want Roux", rec.Animator)
	}

	if changed, _ := s.UnsetStaff(match.Default(), "8h30", "C1", schema.RoleProfesseur, "Petit"); changed {
		t.Error("UnsetStaff() should leave another teacher in place")
	}
	if n := s.UnsetStaffEverywhere(match.Default(), schema.RoleProfesseur, "petit"); n != 1 {
		t.Errorf("UnsetStaffEverywhere() = %d, want 1", n)
	}
	rec, _ = s.Class("8h30", "C2")
	if rec.Teacher != "" {
		t.Errorf("teacher after unset = %q, want empty", rec.Teacher)
	}
}

func TestParseStudentList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Alice, Bob", []string{"Alice", "Bob"}},
		{"Alice;Bob|Chloé\nDan", []string{"Alice", "Bob", "Chloé", "Dan"}},
		{" , Alice,, ", []string{"Alice"}},
		{"Liste des élèves...", nil},
		{"nan", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseStudentList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseStudentList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := FormatStudentList([]string{"émile", "Bob", "alice"}); got != "alice, Bob, émile" {
		t.Errorf("FormatStudentList() = %q", got)
	}
}

func TestRegistryLegacyAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personnel.json")
	legacy := `{"professeurs": ["Durand", {"nom": "Petit", "classes": ["C2", "C1"]}, 42, {"classes": []}],
	            "animateurs": [{"nom": "Roux"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() failed: %v", err)
	}
	if reg.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", reg.Dropped)
	}
	if got := reg.Names(Professeurs); !reflect.DeepEqual(got, []string{"Durand", "Petit"}) {
		t.Errorf("professeurs = %v", got)
	}
	durand := reg.Staff(Professeurs)[0]
	if durand.Classes == nil || len(durand.Classes) != 0 {
		t.Errorf("legacy entry classes = %#v, want empty slice", durand.Classes)
	}
	if roux := reg.Staff(Animateurs)[0]; roux.Classes == nil {
		t.Error("missing classes should load as an empty slice")
	}

	st, added := reg.Add(Animateurs, "Élodie")
	if !added {
		t.Fatal("Add() should insert a new name")
	}
	if !reg.AddClass(st, "Atelier") || reg.AddClass(st, "atelier") {
		t.Error("AddClass() should insert once")
	}
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved registry: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\n    \"professeurs\": [") {
		t.Errorf("registry should be indented by four spaces:\n%s", text)
	}
	if !strings.Contains(text, "Élodie") {
		t.Errorf("non-ASCII names should not be escaped:\n%s", text)
	}
	if strings.Contains(text, "null") {
		t.Errorf("class lists should never be null:\n%s", text)
	}
}

func TestRegistryClassEdits(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "personnel.json"))
	x, _ := reg.Add(Professeurs, "X")
	y, _ := reg.Add(Professeurs, "Y")
	a, _ := reg.Add(Animateurs, "A")
	reg.AddClass(x, "C1")
	reg.AddClass(y, "C1")
	reg.AddClass(y, "C2")
	reg.AddClass(a, "C2")

	if n := reg.RenameClass("C1", "C2"); n != 2 {
		t.Errorf("RenameClass() = %d, want 2", n)
	}
	if !reflect.DeepEqual(x.Classes, []string{"C2"}) || !reflect.DeepEqual(y.Classes, []string{"C2"}) {
		t.Errorf("after rename x=%v y=%v", x.Classes, y.Classes)
	}

	if n := reg.RemoveClass("c2"); n != 3 {
		t.Errorf("RemoveClass() = %d, want 3", n)
	}
	if n := reg.RemoveClass("C2"); n != 0 {
		t.Errorf("repeated RemoveClass() = %d, want 0", n)
	}

	if _, err := reg.Remove(match.Default(), Professeurs, "x"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if got := reg.Names(Professeurs); !reflect.DeepEqual(got, []string{"Y"}) {
		t.Errorf("professeurs after remove = %v", got)
	}
}

func TestLoadRegistryMissing(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "personnel.json"))
	if !IsNotFound(err) {
		t.Errorf("LoadRegistry() error = %v, want ErrStoreNotFound", err)
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"prof": Professeurs, "Animateur": Animateurs, "animateurs": Animateurs} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("cook"); err == nil {
		t.Error("ParseRole(cook) should fail")
	}
}
