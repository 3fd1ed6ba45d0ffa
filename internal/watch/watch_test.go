package watch

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ecoles/roster/internal/store"
)

// fakeStat serves a settable timestamp.
type fakeStat struct {
	mu  sync.Mutex
	t   time.Time
	err error
}

func (f *fakeStat) stat() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t, f.err
}

func (f *fakeStat) set(t time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t, f.err = t, err
}

func testConfig() *Config {
	return &Config{
		Interval:         10 * time.Millisecond,
		FailureThreshold: 3,
		Logger:           log.New(io.Discard, "", 0),
	}
}

var t0 = time.Date(2026, 9, 7, 8, 30, 0, 0, time.UTC)

func TestPollerTick(t *testing.T) {
	f := &fakeStat{t: t0}
	p := NewPoller(f.stat)
	boom := errors.New("boom")

	steps := []struct {
		name     string
		setup    func()
		want     State
		failures int
	}{
		{"first tick", nil, Baseline, 0},
		{"same time", nil, Unchanged, 0},
		{"moved", func() { f.set(t0.Add(time.Minute), nil) }, Changed, 0},
		{"not committed", nil, Changed, 0},
		{"committed", func() { p.Commit() }, Unchanged, 0},
		{"stat error", func() { f.set(t0.Add(time.Minute), boom) }, Failed, 1},
		{"stat error again", nil, Failed, 2},
		{"recovered", func() { f.set(t0.Add(time.Minute), nil) }, Unchanged, 0},
		{"reset", func() { p.Reset() }, Baseline, 0},
	}
	for _, s := range steps {
		if s.setup != nil {
			s.setup()
		}
		got, err := p.Tick()
		if got != s.want {
			t.Fatalf("%s: Tick() = %v (%v), want %v", s.name, got, err, s.want)
		}
		if (got == Failed) != (err != nil) {
			t.Errorf("%s: Tick() error = %v", s.name, err)
		}
		if p.Failures() != s.failures {
			t.Errorf("%s: Failures() = %d, want %d", s.name, p.Failures(), s.failures)
		}
	}
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	if _, err := StatFile(path)(); err == nil {
		t.Error("StatFile() on a missing file should fail")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	mtime := t0.Add(-time.Hour)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	got, err := StatFile(path)()
	if err != nil {
		t.Fatalf("StatFile() failed: %v", err)
	}
	if !got.Equal(mtime) {
		t.Errorf("StatFile() = %v, want %v", got, mtime)
	}
}

func TestWatcherRetriesLockedHandler(t *testing.T) {
	f := &fakeStat{t: t0}
	calls := 0
	handler := func(context.Context) error {
		calls++
		if calls <= 2 {
			return &store.PathError{Op: "open", Path: "ecole_a.xlsx", Err: store.ErrLocked}
		}
		return nil
	}
	w := New(f.stat, handler, testConfig())
	ctx := context.Background()

	if got := w.Step(ctx); got != Baseline {
		t.Fatalf("first Step() = %v, want baseline", got)
	}
	f.set(t0.Add(time.Second), nil)

	want := []State{Failed, Failed, Changed, Unchanged}
	for i, s := range want {
		if got := w.Step(ctx); got != s {
			t.Errorf("Step() #%d = %v, want %v", i+1, got, s)
		}
	}
	if calls != 3 {
		t.Errorf("handler called %d times, want 3", calls)
	}
	if w.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", w.Cycles())
	}
}

func TestWatcherSkipsFatalHandlerError(t *testing.T) {
	f := &fakeStat{t: t0}
	calls := 0
	w := New(f.stat, func(context.Context) error {
		calls++
		return errors.New("required column missing")
	}, testConfig())
	ctx := context.Background()

	w.Step(ctx)
	f.set(t0.Add(time.Second), nil)
	if got := w.Step(ctx); got != Changed {
		t.Errorf("Step() = %v, want changed", got)
	}
	if got := w.Step(ctx); got != Unchanged {
		t.Errorf("Step() after fatal error = %v, want unchanged", got)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestWatcherSurfacesFailureOncePerStreak(t *testing.T) {
	f := &fakeStat{t: t0, err: errors.New("permission denied")}
	var surfaced []error
	cfg := testConfig()
	cfg.OnFailure = func(err error) { surfaced = append(surfaced, err) }
	w := New(f.stat, func(context.Context) error { return nil }, cfg)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		w.Step(ctx)
	}
	if len(surfaced) != 1 {
		t.Fatalf("OnFailure called %d times during one streak, want 1", len(surfaced))
	}

	f.set(t0, nil)
	if got := w.Step(ctx); got != Baseline {
		t.Fatalf("Step() after recovery = %v, want baseline", got)
	}

	f.set(t0, errors.New("permission denied"))
	for i := 0; i < 2; i++ {
		w.Step(ctx)
	}
	if len(surfaced) != 1 {
		t.Fatalf("OnFailure called before the threshold of a new streak")
	}
	w.Step(ctx)
	if len(surfaced) != 2 {
		t.Errorf("OnFailure called %d times, want 2", len(surfaced))
	}
}

func TestNewDefaults(t *testing.T) {
	w := New(func() (time.Time, error) { return t0, nil }, nil, &Config{})
	if w.config.Interval != time.Second || w.config.FailureThreshold != 5 || w.config.Logger == nil {
		t.Errorf("New() config = %+v", w.config)
	}
}

func TestRunHandlesHintAndStops(t *testing.T) {
	f := &fakeStat{t: t0}
	handled := make(chan struct{}, 1)
	hints := make(chan struct{}, 1)

	cfg := testConfig()
	cfg.Interval = time.Hour
	cfg.Hints = hints
	w := New(f.stat, func(context.Context) error {
		handled <- struct{}{}
		return nil
	}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The baseline tick runs before the loop reads hints.
	time.Sleep(50 * time.Millisecond)
	f.set(t0.Add(time.Second), nil)
	hints <- struct{}{}

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for the handler")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestNotifierRelevant(t *testing.T) {
	n := &Notifier{}
	named := &Notifier{names: map[string]bool{"matrix.xlsx": true}}

	tests := []struct {
		name  string
		n     *Notifier
		event fsnotify.Event
		want  bool
	}{
		{"workbook write", n, fsnotify.Event{Name: "/w/ecole_a.xlsx", Op: fsnotify.Write}, true},
		{"registry create", n, fsnotify.Event{Name: "/w/personnel.json", Op: fsnotify.Create}, true},
		{"chmod", n, fsnotify.Event{Name: "/w/ecole_a.xlsx", Op: fsnotify.Chmod}, false},
		{"office owner", n, fsnotify.Event{Name: "/w/~$ecole_a.xlsx", Op: fsnotify.Create}, false},
		{"libreoffice owner", n, fsnotify.Event{Name: "/w/.~lock.ecole_a.xlsx#", Op: fsnotify.Create}, false},
		{"other file", n, fsnotify.Event{Name: "/w/notes.txt", Op: fsnotify.Write}, false},
		{"named match", named, fsnotify.Event{Name: "/w/matrix.xlsx", Op: fsnotify.Rename}, true},
		{"named miss", named, fsnotify.Event{Name: "/w/ecole_a.xlsx", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestNotifierHint(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNotifier()
	if err != nil {
		t.Fatalf("NewNotifier() failed: %v", err)
	}
	defer n.Stop()

	if err := n.Start(dir, "matrix.xlsx"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !n.IsRunning() {
		t.Error("Notifier should be running after Start()")
	}
	if err := n.Start(dir); err == nil {
		t.Error("Second Start() should fail when notifier is already running")
	}

	if err := os.WriteFile(filepath.Join(dir, "matrix.xlsx"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	select {
	case <-n.Hints():
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for hint")
	}

	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if n.IsRunning() {
		t.Error("Notifier should not be running after Stop()")
	}
}

func TestNotifierStopClosesErrors(t *testing.T) {
	n, err := NewNotifier()
	if err != nil {
		t.Fatalf("NewNotifier() failed: %v", err)
	}
	if err := n.Start(t.TempDir()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	drained := make(chan struct{})
	go func() {
		for range n.Errors() {
		}
		close(drained)
	}()

	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("ranging over Errors() did not end after Stop()")
	}
	if err := n.Stop(); err != nil {
		t.Errorf("second Stop() = %v, want nil", err)
	}
}
