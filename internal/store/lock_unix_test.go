//go:build unix

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestExcelFlockLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	writeBook(t, path, &Sheet{Name: "Sheet1", Rows: [][]string{{"Stagiaire"}}})

	holder, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open holder: %v", err)
	}
	defer holder.Close()
	if err := unix.Flock(int(holder.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		t.Fatalf("failed to take lock: %v", err)
	}

	if _, err := testBackend().Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("Open() error = %v, want ErrLocked", err)
	}

	if err := unix.Flock(int(holder.Fd()), unix.LOCK_UN); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if _, err := testBackend().Open(path); err != nil {
		t.Errorf("Open() after unlock failed: %v", err)
	}
}
