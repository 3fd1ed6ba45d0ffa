// Package logging builds the component loggers of the CLI.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log destinations.
type Config struct {
	// Verbose copies log lines to Stderr.
	Verbose bool

	// File, when set, receives every line through a rotating writer.
	File string

	// MaxSizeMB is the rotation size of File (default 10).
	MaxSizeMB int

	// Stderr overrides os.Stderr.
	Stderr io.Writer
}

// Sink is the shared destination of all component loggers.
type Sink struct {
	w      io.Writer
	closer io.Closer
}

// Open returns a sink for cfg. Without Verbose or File, logs are discarded.
func Open(cfg Config) (*Sink, error) {
	var writers []io.Writer
	s := &Sink{}

	if cfg.Verbose {
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		size := cfg.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    size,
			MaxBackups: 3,
			MaxAge:     28,
		}
		writers = append(writers, lj)
		s.closer = lj
	}

	switch len(writers) {
	case 0:
		s.w = io.Discard
	case 1:
		s.w = writers[0]
	default:
		s.w = io.MultiWriter(writers...)
	}
	return s, nil
}

// Logger returns a logger prefixed with "[component] ".
func (s *Sink) Logger(component string) *log.Logger {
	return log.New(s.w, "["+component+"] ", log.LstdFlags)
}

// Writer returns the underlying writer.
func (s *Sink) Writer() io.Writer {
	return s.w
}

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
