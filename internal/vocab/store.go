// Package vocab holds the local vocabulary store: a document mapping lookup keys
// to entries, rewritten in full on every save.
package vocab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/aidanlsb/lang/internal/atomicfile"
)

// DuplicateKeyError is returned by Upsert when the key is already present.
type DuplicateKeyError struct {
	Key      string
	Existing *Entry
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("entry %q already exists", e.Key)
}

// Item pairs an entry with its lookup key.
type Item struct {
	Key   string
	Entry *Entry
}

// Store maps lookup keys to entries. Keys are unique by construction.
type Store struct {
	entries map[string]*Entry

	// unreadable holds the bytes of a document that failed to parse, kept so
	// the next save can back them up before overwriting.
	unreadable []byte
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Load reads the store at path. A missing file yields an empty store. A
// malformed document also yields an empty store; the problem is logged and the
// original bytes are backed up on the next Save.
func Load(path string, logger *slog.Logger) (*Store, error) {
	s := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	var raw map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		if logger != nil {
			logger.Warn("vocabulary file is malformed, starting empty", "path", path, "error", err)
		}
		s.unreadable = data
		return s, nil
	}
	for k, e := range raw {
		if e == nil || k == "" {
			continue
		}
		s.entries[k] = e
	}
	return s, nil
}

// Save writes the store to path atomically.
func (s *Store) Save(path string) error {
	if s.unreadable != nil {
		if err := atomicfile.WriteFile(path+".bak", s.unreadable, 0o644); err != nil {
			return fmt.Errorf("failed to back up unreadable vocabulary: %w", err)
		}
		s.unreadable = nil
	}

	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0); err != nil {
		return fmt.Errorf("failed to save vocabulary %s: %w", path, err)
	}
	return nil
}

// Marshal renders the persisted document: newest entries first, two-space
// indentation, non-ASCII text kept as-is.
func (s *Store) Marshal() ([]byte, error) {
	items := s.Sorted()
	if len(items) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, it := range items {
		key, err := encode(it.Key)
		if err != nil {
			return nil, err
		}
		value, err := encode(it.Entry)
		if err != nil {
			return nil, fmt.Errorf("failed to encode entry %q: %w", it.Key, err)
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, value, "  ", "  "); err != nil {
			return nil, err
		}
		if i < len(items)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Upsert stores e under key. An existing key is replaced only when force is set.
func (s *Store) Upsert(key string, e *Entry, force bool) error {
	if existing, ok := s.entries[key]; ok && !force {
		return &DuplicateKeyError{Key: key, Existing: existing}
	}
	s.entries[key] = e
	return nil
}

// Get returns the entry for key.
func (s *Store) Get(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Remove deletes key and returns the removed entry.
func (s *Store) Remove(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return e, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Keys returns the lookup keys in persisted order.
func (s *Store) Keys() []string {
	items := s.Sorted()
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// Sorted returns every entry in persisted order: AddedAt descending, then key.
func (s *Store) Sorted() []Item {
	items := make([]Item, 0, len(s.entries))
	for k, e := range s.entries {
		items = append(items, Item{Key: k, Entry: e})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Entry.AddedAt, items[j].Entry.AddedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].Key < items[j].Key
	})
	return items
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []Item {
	items := s.Sorted()
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

// Unsynced returns entries without an external id, in persisted order.
func (s *Store) Unsynced() []Item {
	var out []Item
	for _, it := range s.Sorted() {
		if !it.Entry.Synced() {
			out = append(out, it)
		}
	}
	return out
}

// KeyForExternalID returns the key of the entry carrying id, if any.
func (s *Store) KeyForExternalID(id ExternalID) (string, bool) {
	if id == "" {
		return "", false
	}
	for _, it := range s.Sorted() {
		if it.Entry.ExternalID == id {
			return it.Key, true
		}
	}
	return "", false
}
