package history

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	entryName      = "input-history"
	maxHistorySize = 1000
)

// Storage persists the history.
type Storage interface {
	Put(name string, value any) error
	Get(name string, value any) (bool, error)
}

// History manages input history with persistence.
type History struct {
	storage Storage
	mutex   sync.Mutex
	entries []string
	index   int    // Current position in history (-1 means new input)
	current string // Stores current input when navigating history
}

// New creates a History and loads the persisted entries.
func New(storage Storage) (*History, error) {
	h := &History{
		storage: storage,
		index:   -1,
	}
	if _, err := storage.Get(entryName, &h.entries); err != nil {
		return nil, errors.Wrap(err, "loading input history")
	}
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
	return h, nil
}

// Add adds a new entry to history and persists it.
func (h *History) Add(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.index = -1
	h.current = ""

	// Don't add duplicates of the last entry
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return nil
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
	if err := h.storage.Put(entryName, h.entries); err != nil {
		return errors.Wrap(err, "saving input history")
	}
	return nil
}

// Previous returns the previous entry in history.
// currentInput is the current input content, restored when navigating back past the newest entry.
func (h *History) Previous(currentInput string) (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.entries) == 0 {
		return "", false
	}

	switch {
	case h.index == -1:
		h.current = currentInput
		h.index = len(h.entries) - 1
	case h.index > 0:
		h.index--
	default:
		// Already at oldest entry
		return h.entries[0], false
	}
	return h.entries[h.index], true
}

// Next returns the next entry in history (toward present).
func (h *History) Next() (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.index == -1 {
		return "", false
	}

	h.index++
	if h.index >= len(h.entries) {
		h.index = -1
		return h.current, true
	}
	return h.entries[h.index], true
}

// Reset resets the navigation index (call when input is modified).
func (h *History) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.index = -1
	h.current = ""
}
