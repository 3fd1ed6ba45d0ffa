package watch

import (
	"fmt"
	"os"
	"time"
)

// State classifies one tick.
type State int

const (
	// Baseline is the first successful tick after NewPoller or Reset.
	Baseline State = iota
	// Unchanged means the timestamp equals the committed one.
	Unchanged
	// Changed means the timestamp moved since the last commit.
	Changed
	// Failed means the stat function returned an error.
	Failed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Baseline:
		return "baseline"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatFunc returns the current modification time of the watched store.
type StatFunc func() (time.Time, error)

// StatFile stats path.
func StatFile(path string) StatFunc {
	return func() (time.Time, error) {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		return info.ModTime(), nil
	}
}

// Poller compares successive timestamps. A Changed tick is not committed
// until Commit, so an unhandled change is reported again.
type Poller struct {
	stat     StatFunc
	last     time.Time
	pending  time.Time
	primed   bool
	failures int
}

// NewPoller returns a poller whose first tick is a Baseline.
func NewPoller(stat StatFunc) *Poller {
	return &Poller{stat: stat}
}

// Tick stats the store once.
func (p *Poller) Tick() (State, error) {
	t, err := p.stat()
	if err != nil {
		p.failures++
		return Failed, err
	}
	if !p.primed {
		p.primed = true
		p.last = t
		p.failures = 0
		return Baseline, nil
	}
	if t.Equal(p.last) {
		p.failures = 0
		return Unchanged, nil
	}
	p.pending = t
	return Changed, nil
}

// Commit accepts the timestamp of the last Changed tick as the new
// baseline and clears the failure streak.
func (p *Poller) Commit() {
	if !p.pending.IsZero() {
		p.last = p.pending
		p.pending = time.Time{}
	}
	p.failures = 0
}

// Fail counts a failure that happened after a Changed tick and returns the
// length of the streak. The baseline does not move.
func (p *Poller) Fail() int {
	p.failures++
	return p.failures
}

// Failures returns the number of consecutive failed ticks.
func (p *Poller) Failures() int {
	return p.failures
}

// Reset forgets the baseline and the failure streak.
func (p *Poller) Reset() {
	p.last = time.Time{}
	p.pending = time.Time{}
	p.primed = false
	p.failures = 0
}
