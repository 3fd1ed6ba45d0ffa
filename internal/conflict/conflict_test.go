package conflict

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ecoles/roster/internal/store"
)

func loadRegistry(t *testing.T, doc string) *store.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personnel.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}
	reg, err := store.LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() failed: %v", err)
	}
	return reg
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		names   []string
		classes []Class
	}{
		{
			name:    "shared class",
			doc:     `{"professeurs": [{"nom": "X", "classes": ["C1"]}, {"nom": "Y", "classes": ["C1", "C2"]}]}`,
			names:   []string{"X", "Y"},
			classes: []Class{{Role: store.Professeurs, Name: "C1", Owners: []string{"X", "Y"}}},
		},
		{
			name:  "no overlap",
			doc:   `{"professeurs": [{"nom": "X", "classes": ["C1"]}, {"nom": "Y", "classes": ["C2"]}]}`,
			names: []string{},
		},
		{
			name:  "across roles",
			doc:   `{"professeurs": [{"nom": "X", "classes": ["C1"]}], "animateurs": [{"nom": "Lina", "classes": ["C1"]}]}`,
			names: []string{},
		},
		{
			name:    "case and spacing",
			doc:     `{"animateurs": [{"nom": "Zoé", "classes": ["atelier 1"]}, {"nom": "Anna", "classes": ["Atelier  1"]}, {"nom": "Lina", "classes": []}]}`,
			names:   []string{"Anna", "Zoé"},
			classes: []Class{{Role: store.Animateurs, Name: "atelier 1", Owners: []string{"Zoé", "Anna"}}},
		},
		{
			name:  "duplicate entry of one owner",
			doc:   `{"professeurs": [{"nom": "X", "classes": ["C1", "c1"]}]}`,
			names: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := loadRegistry(t, tt.doc)
			r := Detect(reg)
			if got := r.Names(); !reflect.DeepEqual(got, tt.names) {
				t.Errorf("Names() = %v, want %v", got, tt.names)
			}
			if !reflect.DeepEqual(r.Classes, tt.classes) {
				t.Errorf("Classes = %+v, want %+v", r.Classes, tt.classes)
			}
			if r.Empty() != (len(tt.classes) == 0) {
				t.Errorf("Empty() = %v", r.Empty())
			}
		})
	}
}

func TestDetectDoesNotMutate(t *testing.T) {
	reg := loadRegistry(t, `{"professeurs": [{"nom": "X", "classes": ["C1"]}, {"nom": "Y", "classes": ["C1", "C2"]}]}`)
	Detect(reg)
	if reg.Modified() {
		t.Error("Detect() should not modify the registry")
	}
	if got := reg.Staff(store.Professeurs)[1].Classes; !reflect.DeepEqual(got, []string{"C1", "C2"}) {
		t.Errorf("classes changed to %v", got)
	}
}

func TestReportLookups(t *testing.T) {
	reg := loadRegistry(t, `{"professeurs": [{"nom": "X", "classes": ["C1", "C3"]}, {"nom": "Y", "classes": ["C1", "C2"]}, {"nom": "Z", "classes": ["C3"]}]}`)
	r := Detect(reg)

	if !r.Has("x") || !r.Has(" Y ") || !r.Has("Z") {
		t.Errorf("Has() misses a conflicted member: %v", r.Names())
	}
	if got := len(r.ClassesOf("X")); got != 2 {
		t.Errorf("ClassesOf(X) returned %d classes, want 2", got)
	}
	if got := r.ClassesOf("Y"); len(got) != 1 || got[0].Name != "C1" {
		t.Errorf("ClassesOf(Y) = %+v", got)
	}
}

func TestDetectNil(t *testing.T) {
	r := Detect(nil)
	if !r.Empty() || r.Has("X") || len(r.Names()) != 0 {
		t.Errorf("Detect(nil) = %+v", r)
	}
}
