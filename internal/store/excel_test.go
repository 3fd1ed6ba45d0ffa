package store

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func testBackend() *Excel {
	return NewExcel(log.New(io.Discard, "[test] ", 0))
}

// writeBook creates a workbook fixture at path.
func writeBook(t *testing.T, path string, sheets ...*Sheet) {
	t.Helper()
	if err := testBackend().Save(&Workbook{Path: path, Sheets: sheets}); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}

func openBook(t *testing.T, path string) *Workbook {
	t.Helper()
	wb, err := testBackend().Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	return wb
}

func TestExcelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecole_a.xlsx")
	writeBook(t, path,
		&Sheet{Name: "8h Professeur", Rows: [][]string{
			{"Classe", "Niveau", "Liste des élèves"},
			{"C1", "A1", "Alice, Bob"},
			{"C2", "B1", "Chloé"},
		}},
		&Sheet{Name: "8h Animateur"},
	)

	wb := openBook(t, path)
	if len(wb.Sheets) != 2 {
		t.Fatalf("got %d sheets, want 2", len(wb.Sheets))
	}
	if wb.Sheets[0].Name != "8h Professeur" || wb.Sheets[1].Name != "8h Animateur" {
		t.Errorf("sheet names = %q, %q", wb.Sheets[0].Name, wb.Sheets[1].Name)
	}
	if got := wb.Sheets[0].Cell(2, 2); got != "Chloé" {
		t.Errorf("Cell(2, 2) = %q, want %q", got, "Chloé")
	}
	if wb.Modified() {
		t.Error("freshly opened workbook should not be modified")
	}

	// Shrink the first sheet and change a value.
	sheet := wb.Sheets[0]
	sheet.RemoveRow(2)
	sheet.Set(1, 2, "Alice")
	if !wb.Modified() {
		t.Fatal("workbook should be modified after edits")
	}
	if err := testBackend().Save(wb); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if wb.Modified() {
		t.Error("Save() should clear the modified flag")
	}

	wb = openBook(t, path)
	rows := wb.Sheets[0].Rows
	if len(rows) != 2 {
		t.Fatalf("got %d rows after save, want 2: %v", len(rows), rows)
	}
	if got := wb.Sheets[0].Cell(1, 2); got != "Alice" {
		t.Errorf("Cell(1, 2) = %q, want %q", got, "Alice")
	}
}

func TestExcelSaveBuiltWorkbookOverExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecole_a.xlsx")
	writeBook(t, path, &Sheet{Name: "8h Professeur", Rows: [][]string{{"Classe"}, {"C1"}}})

	built := &Workbook{Path: path, Sheets: []*Sheet{
		{Name: "8h Professeur", Rows: [][]string{{"Classe"}, {"C7"}}},
		{Name: "10h Professeur", Rows: [][]string{{"Classe"}, {"D1"}}},
	}}
	if !built.Modified() {
		t.Fatal("a workbook built in memory should report unsaved sheets")
	}
	if err := testBackend().Save(built); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if built.Modified() {
		t.Error("Save() should leave the workbook unmodified")
	}

	wb := openBook(t, path)
	if got := wb.Sheets[0].Cell(1, 0); got != "C7" {
		t.Errorf("first sheet Cell(1, 0) = %q, want %q", got, "C7")
	}
	second := wb.Sheet("10h Professeur")
	if second == nil {
		t.Fatal("new sheet was not written")
	}
	if got := second.Cell(1, 0); got != "D1" {
		t.Errorf("new sheet Cell(1, 0) = %q, want %q", got, "D1")
	}
}

func TestExcelNumericCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	writeBook(t, path, &Sheet{Name: "Sheet1", Rows: [][]string{
		{"Stagiaire", "Âge", "Note"},
		{"Alice", "12", "007"},
	}})

	wb := openBook(t, path)
	if got := wb.Sheets[0].Cell(1, 1); got != "12" {
		t.Errorf("age = %q, want %q", got, "12")
	}
	if got := wb.Sheets[0].Cell(1, 2); got != "007" {
		t.Errorf("leading zeros = %q, want %q", got, "007")
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"12", 12},
		{"1.5", 1.5},
		{"007", "007"},
		{"1e3", "1e3"},
		{"A1", "A1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cellValue(tt.in); got != tt.want {
			t.Errorf("cellValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestExcelOpenMissing(t *testing.T) {
	_, err := testBackend().Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	if !IsNotFound(err) {
		t.Fatalf("Open() error = %v, want ErrStoreNotFound", err)
	}
	var pe *PathError
	if !errors.As(err, &pe) || pe.Op != "open" {
		t.Errorf("error %v should be a PathError for op open", err)
	}
}

func TestExcelOwnerFileLock(t *testing.T) {
	tests := []struct {
		name  string
		owner string
	}{
		{"office", "~$matrix.xlsx"},
		{"office truncated", "~$trix.xlsx"},
		{"libreoffice", ".~lock.matrix.xlsx#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "matrix.xlsx")
			writeBook(t, path, &Sheet{Name: "Sheet1", Rows: [][]string{{"Stagiaire"}}})

			if err := os.WriteFile(filepath.Join(dir, tt.owner), []byte("owner"), 0644); err != nil {
				t.Fatalf("failed to write owner file: %v", err)
			}

			_, err := testBackend().Open(path)
			if !errors.Is(err, ErrLocked) {
				t.Fatalf("Open() error = %v, want ErrLocked", err)
			}
			if !IsRetryable(err) {
				t.Error("locked error should be retryable")
			}

			wb := &Workbook{Path: path, Sheets: []*Sheet{{Name: "Sheet1", Rows: [][]string{{"Stagiaire"}}, modified: true}}}
			if err := testBackend().Save(wb); !errors.Is(err, ErrLocked) {
				t.Errorf("Save() error = %v, want ErrLocked", err)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"  A1 ": "A1",
		"nan":   "",
		"NaN":   "",
		"None":  "",
		"":      "",
		"nona":  "nona",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}
