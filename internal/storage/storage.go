package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbox/texturelab/internal/models"
)

const (
	// HistoryFile is the single key the history is persisted under
	HistoryFile = "texturelab_history.json"
	// MaxEntries bounds the history length
	MaxEntries = 20
	// CoalesceWindow is how recent the head entry must be to be overwritten
	CoalesceWindow = 5 * time.Minute
	// DefaultDebounce is the quiet period before a pending save is written
	DefaultDebounce = time.Second
)

// HistoryStore keeps the most-recent-first list of material snapshots and
// persists it with a trailing debounced write.
type HistoryStore struct {
	path     string
	debounce time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries []models.HistoryEntry
	timer   *time.Timer
	dirty   bool
	closed  bool
}

// Open loads the history from dir. Missing or corrupt data yields an empty list.
func Open(dir string, debounce time.Duration) (*HistoryStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &HistoryStore{
		path:     filepath.Join(dir, HistoryFile),
		debounce: debounce,
		now:      time.Now,
		entries:  []models.HistoryEntry{},
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		slog.Error("Failed to read history, starting empty", "path", s.path, "err", err)
		return s, nil
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Error("Corrupt history, starting empty", "path", s.path, "err", err)
		return s, nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.entries = entries

	slog.Info("Loaded history", "path", s.path, "entries", len(entries))
	return s, nil
}

// Path returns the backing file
func (s *HistoryStore) Path() string {
	return s.path
}

// Record snapshots maps under name. The head entry is overwritten when it has
// the same name and is younger than CoalesceWindow; otherwise a new entry is
// prepended and the list trimmed to MaxEntries.
func (s *HistoryStore) Record(name string, maps []models.TextureMap) models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snapshot := models.CloneMaps(maps)

	if len(s.entries) > 0 {
		head := &s.entries[0]
		if head.Name == name && now.Sub(head.Timestamp) < CoalesceWindow {
			head.Maps = snapshot
			head.Timestamp = now
			s.scheduleLocked()
			return cloneEntry(*head)
		}
	}

	entry := models.HistoryEntry{
		ID:        uuid.New().String(),
		Name:      name,
		Timestamp: now,
		Maps:      snapshot,
	}
	s.entries = append([]models.HistoryEntry{entry}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	s.scheduleLocked()
	return cloneEntry(entry)
}

// List returns a copy of all entries, most recent first
func (s *HistoryStore) List() []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Get returns the entry with the given id
func (s *HistoryStore) Get(id string) (models.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return cloneEntry(e), true
		}
	}
	return models.HistoryEntry{}, false
}

// Clear drops every entry and removes the backing file immediately
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []models.HistoryEntry{}
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history: %w", err)
	}
	slog.Info("Cleared history", "path", s.path)
	return nil
}

// Flush writes any pending change now
func (s *HistoryStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes and stops the debounce timer. Later Records are kept in memory only.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	err := s.flushLocked()
	s.closed = true
	return err
}

func (s *HistoryStore) scheduleLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	if s.debounce <= 0 {
		if err := s.flushLocked(); err != nil {
			slog.Error("Failed to save history", "err", err)
		}
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flushDeferred)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *HistoryStore) flushDeferred() {
	if err := s.Flush(); err != nil {
		slog.Error("Failed to save history", "err", err)
	}
}

func (s *HistoryStore) flushLocked() error {
	if !s.dirty || s.closed {
		return nil
	}

	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}

	s.dirty = false
	slog.Debug("Saved history", "path", s.path, "entries", len(s.entries), "bytes", len(data))
	return nil
}

func cloneEntry(e models.HistoryEntry) models.HistoryEntry {
	e.Maps = models.CloneMaps(e.Maps)
	return e
}
