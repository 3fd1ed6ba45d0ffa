package dashboard

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ecoles/roster/internal/conflict"
	"github.com/ecoles/roster/internal/store"
	rostersync "github.com/ecoles/roster/internal/sync"
)

// StoreChangedData names the store the watcher saw change
type StoreChangedData struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// SyncCompleteData summarizes one roster to class push
type SyncCompleteData struct {
	Rows     int           `json:"rows"`
	Added    int           `json:"added"`
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Pruned   int           `json:"pruned"`
	Failed   []string      `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ConflictsData lists contested classes and the staff involved
type ConflictsData struct {
	Names   []string         `json:"names"`
	Classes []conflict.Class `json:"classes"`
}

// Handler formats watcher events as dashboard messages.
type Handler struct {
	server *Server
	logger *log.Logger
	stats  store.Stats
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	return &Handler{server: server, logger: logger}
}

func (h *Handler) send(t MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", t, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      t,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// OnStoreChanged handles a detected change of the store at path
func (h *Handler) OnStoreChanged(path string) {
	h.logger.Printf("Store changed: %s", path)
	h.send(MessageTypeStoreChanged, StoreChangedData{Path: path, Name: filepath.Base(path)})
}

// OnSyncComplete handles the end of a push. report may be nil when the
// push failed before loading the roster.
func (h *Handler) OnSyncComplete(report *rostersync.ReconcileReport, duration time.Duration, err error) {
	data := SyncCompleteData{Duration: duration}
	if report != nil {
		data.Rows = report.Rows
		data.Added = report.Added
		data.Created = report.Created
		data.Skipped = report.Skipped
		data.Pruned = report.Pruned
		data.Failed = report.Failed
	}
	if err != nil {
		data.Error = err.Error()
	}
	h.logger.Printf("Sync complete: %d rows, %d added in %v", data.Rows, data.Added, duration)
	h.send(MessageTypeSyncComplete, data)
}

// OnConflicts publishes the current conflict report
func (h *Handler) OnConflicts(r conflict.Report) {
	classes := r.Classes
	if classes == nil {
		classes = []conflict.Class{}
	}
	h.send(MessageTypeConflicts, ConflictsData{Names: r.Names(), Classes: classes})
}

// UpdateStats replaces the statistics and broadcasts them
func (h *Handler) UpdateStats(st store.Stats) {
	h.stats = st
	h.send(MessageTypeStats, st)
}

// GetStats returns the last published statistics
func (h *Handler) GetStats() store.Stats {
	return h.stats
}
