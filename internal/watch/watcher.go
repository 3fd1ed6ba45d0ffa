package watch

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ecoles/roster/internal/store"
)

// Handler reacts to a detected change. Errors for which store.IsRetryable
// is true are retried on the next tick.
type Handler func(ctx context.Context) error

// Config holds configuration for the watcher.
type Config struct {
	// Interval between polls.
	Interval time.Duration

	// FailureThreshold is the number of consecutive failed ticks after
	// which OnFailure is called.
	FailureThreshold int

	// OnFailure, when set, is called once per failure streak that reaches
	// FailureThreshold.
	OnFailure func(err error)

	// Hints makes the loop poll early. It is usually Notifier.Hints.
	Hints <-chan struct{}

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns a one second interval and a threshold of five.
func DefaultConfig() *Config {
	return &Config{
		Interval:         time.Second,
		FailureThreshold: 5,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher runs the poll loop.
type Watcher struct {
	poller   *Poller
	handler  Handler
	config   *Config
	surfaced bool
	cycles   int
}

// New creates a watcher. Zero fields of cfg take the DefaultConfig values.
func New(stat StatFunc, handler Handler, cfg *Config) *Watcher {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	c := *cfg
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return &Watcher{poller: NewPoller(stat), handler: handler, config: &c}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.config.Logger.Printf("Watching every %s", w.config.Interval)
	w.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			w.config.Logger.Println("Watcher stopped")
			return nil
		case <-ticker.C:
			w.Step(ctx)
		case _, ok := <-w.config.Hints:
			if !ok {
				w.config.Hints = nil
				continue
			}
			w.Step(ctx)
		}
	}
}

// Step runs one tick and returns its state. A Changed tick whose handler
// failed with a retryable error is reported as Failed.
func (w *Watcher) Step(ctx context.Context) State {
	state, err := w.poller.Tick()
	switch state {
	case Failed:
		w.failed(err)
	case Baseline, Unchanged:
		w.surfaced = false
	case Changed:
		herr := w.handler(ctx)
		switch {
		case herr == nil:
			w.poller.Commit()
			w.surfaced = false
			w.cycles++
		case store.IsRetryable(herr):
			w.poller.Fail()
			w.failed(herr)
			return Failed
		default:
			w.config.Logger.Printf("WARNING: sync after change failed: %v", herr)
			w.poller.Commit()
			w.surfaced = false
		}
	}
	return state
}

func (w *Watcher) failed(err error) {
	n := w.poller.Failures()
	w.config.Logger.Printf("Tick failed (%d in a row): %v", n, err)
	if n >= w.config.FailureThreshold && !w.surfaced {
		w.surfaced = true
		w.config.Logger.Printf("WARNING: %d consecutive failures", n)
		if w.config.OnFailure != nil {
			w.config.OnFailure(err)
		}
	}
}

// Cycles returns how many changes were handled successfully.
func (w *Watcher) Cycles() int {
	return w.cycles
}

// Reset makes the next tick a new baseline.
func (w *Watcher) Reset() {
	w.poller.Reset()
	w.surfaced = false
}
