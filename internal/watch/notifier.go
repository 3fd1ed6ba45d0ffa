package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Notifier turns fsnotify events on a week folder into poll hints.
type Notifier struct {
	watcher   *fsnotify.Watcher
	hints     chan struct{}
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	closeErrs sync.Once
	mu        sync.Mutex
	running   bool
	names     map[string]bool
}

// NewNotifier creates a Notifier. It must be started with Start.
func NewNotifier() (*Notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Notifier{
		watcher: watcher,
		hints:   make(chan struct{}, 1),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start watches dir. With names, only events on those base names hint;
// otherwise any workbook or JSON file does.
func (n *Notifier) Start(dir string, names ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("notifier already running")
	}
	if err := n.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	n.names = make(map[string]bool, len(names))
	for _, name := range names {
		n.names[name] = true
	}

	n.running = true
	n.wg.Add(1)
	go n.processEvents()
	return nil
}

// Stop closes the fsnotify watcher, waits for the event goroutine and
// closes the Errors channel. Hints stays open. Stop may be called twice.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	running := n.running
	n.running = false
	n.mu.Unlock()

	if running {
		close(n.done)
	}
	err := n.watcher.Close()
	n.wg.Wait()
	n.closeErrs.Do(func() { close(n.errors) })
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Hints returns the 1-buffered hint channel.
func (n *Notifier) Hints() <-chan struct{} {
	return n.hints
}

// Errors returns fsnotify errors. It is closed by Stop.
func (n *Notifier) Errors() <-chan error {
	return n.errors
}

// IsRunning returns true if the notifier is currently running.
func (n *Notifier) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

func (n *Notifier) processEvents() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if n.relevant(event) {
				select {
				case n.hints <- struct{}{}:
				default:
				}
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			select {
			case n.errors <- err:
			default:
			}
		}
	}
}

// relevant filters out chmod events and spreadsheet owner files.
func (n *Notifier) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~lock.") {
		return false
	}
	if len(n.names) > 0 {
		return n.names[base]
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".xlsx" || ext == ".json"
}
