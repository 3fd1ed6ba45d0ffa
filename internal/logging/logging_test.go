package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenDiscard(t *testing.T) {
	s, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if s.Writer() != io.Discard {
		t.Error("quiet sink should discard")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestVerboseAndFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "roster.log")

	s, err := Open(Config{Verbose: true, File: path, Stderr: &stderr})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.Logger("sync").Printf("WARNING: %s", "locked")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if !strings.Contains(stderr.String(), "[sync] ") || !strings.Contains(stderr.String(), "WARNING: locked") {
		t.Errorf("stderr = %q", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.HasPrefix(string(data), "[sync] ") || !strings.Contains(string(data), "WARNING: locked") {
		t.Errorf("log file = %q", data)
	}
}
