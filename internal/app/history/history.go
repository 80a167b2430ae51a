// Package history provides the in-memory listening history.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/19radio/internal/domain/station"
)

// DefaultSize is the default number of entries kept.
const DefaultSize = 10

// Entry is a single listening history entry.
type Entry struct {
	ID          string    // Entry UUID
	StationName string    // Station display name
	Genre       string    // Station genre
	URL         string    // Stream URL
	PlayedAt    time.Time // When playback reached the playing state
}

// History keeps the most recent entries, newest first.
type History struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
	now     func() time.Time
}

// New creates a new history holding at most size entries.
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{
		size:    size,
		entries: make([]Entry, 0, size),
		now:     time.Now,
	}
}

// Record prepends an entry for st. An existing entry for the same station is
// moved to the front with a fresh timestamp instead of being duplicated.
func (h *History) Record(st station.Station) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := Entry{
		ID:          uuid.New().String(),
		StationName: st.DisplayName(),
		Genre:       st.Genre,
		URL:         st.URL,
		PlayedAt:    h.now(),
	}

	filtered := make([]Entry, 0, h.size)
	filtered = append(filtered, entry)
	for _, e := range h.entries {
		if e.URL == entry.URL && e.StationName == entry.StationName {
			continue
		}
		if len(filtered) == h.size {
			break
		}
		filtered = append(filtered, e)
	}
	h.entries = filtered
	return entry
}

// Entries returns a copy of the entries, newest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Entry, len(h.entries))
	copy(result, h.entries)
	return result
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}
