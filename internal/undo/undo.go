// Package undo persists the single most recent reversible action for a language.
//
// The log is one slot, not a stack: recording overwrites whatever was there.
package undo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aidanlsb/lang/internal/atomicfile"
	"github.com/aidanlsb/lang/internal/vocab"
)

// ActionNew is recorded after an entry is added with `new`.
const ActionNew = "new"

// ErrNothingToUndo is returned when the slot is empty or holds no `new` action.
var ErrNothingToUndo = errors.New("nothing to undo")

// StaleError is returned when the recorded key is no longer in the store.
type StaleError struct {
	Key string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("could not find %q to undo", e.Key)
}

// Action is the recorded operation.
type Action struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	// Previous is the entry a forced `new` replaced. Undo puts it back
	// instead of removing the key.
	Previous *vocab.Entry `json:"previous,omitempty"`
}

// Undone describes a reversed action.
type Undone struct {
	Key string
	// Removed is the entry taken out of the store.
	Removed *vocab.Entry
	// Restored is the entry put back in its place, nil when the key was
	// simply removed.
	Restored *vocab.Entry
}

// Log is the undo slot for one language.
type Log struct {
	path string
}

// Path returns the slot file for a language inside its data directory.
func Path(dataDir, id string) string {
	return filepath.Join(dataDir, "."+id+"_last_action.json")
}

// New returns the log stored at path.
func New(path string) *Log {
	return &Log{path: path}
}

// Record overwrites the slot with a.
func (l *Log) Record(a Action) error {
	if err := atomicfile.WriteJSON(l.path, a, 0o644); err != nil {
		return fmt.Errorf("failed to record last action: %w", err)
	}
	return nil
}

// Load returns the recorded action. It returns ErrNothingToUndo when the slot
// is empty or unreadable.
func (l *Log) Load() (*Action, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNothingToUndo
		}
		return nil, fmt.Errorf("failed to read last action: %w", err)
	}
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, ErrNothingToUndo
	}
	return &a, nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (l *Log) Clear() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear last action: %w", err)
	}
	return nil
}

// Apply reverses the recorded action against s. On ErrNothingToUndo or
// *StaleError the slot is cleared so the same failure does not repeat. On
// success the caller persists s and then calls Clear.
func (l *Log) Apply(s *vocab.Store) (*Undone, error) {
	a, err := l.Load()
	if err != nil {
		if errors.Is(err, ErrNothingToUndo) {
			_ = l.Clear()
		}
		return nil, err
	}
	if a.Type != ActionNew || a.Key == "" {
		_ = l.Clear()
		return nil, ErrNothingToUndo
	}

	e, ok := s.Remove(a.Key)
	if !ok {
		_ = l.Clear()
		return nil, &StaleError{Key: a.Key}
	}
	u := &Undone{Key: a.Key, Removed: e}
	if a.Previous != nil {
		if err := s.Upsert(a.Key, a.Previous, true); err != nil {
			return nil, err
		}
		u.Restored = a.Previous
	}
	return u, nil
}
