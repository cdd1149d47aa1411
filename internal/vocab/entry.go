package vocab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/lang/internal/profile"
)

// Entry is one vocabulary item. Values are stored by role so the document
// layout does not change when a profile renames its fields.
type Entry struct {
	Primary            string     `json:"primary"`
	Phonetic           string     `json:"phonetic,omitempty"`
	Translation        string     `json:"translation"`
	Example            string     `json:"example"`
	ExampleTranslation string     `json:"example_translation"`
	Grammar            string     `json:"grammar"`
	Level              Level      `json:"level"`
	ExternalID         ExternalID `json:"external_id"`
	AddedAt            time.Time  `json:"added_at"`
}

// FromFields builds an entry from values keyed by the profile's logical field names.
func FromFields(f profile.Fields, values map[string]string) *Entry {
	e := &Entry{}
	for _, r := range profile.Roles {
		name := f.Name(r)
		if name == "" {
			continue
		}
		e.Set(r, strings.TrimSpace(values[name]))
	}
	return e
}

// Synced reports whether the flashcard service has confirmed this entry.
func (e *Entry) Synced() bool {
	return e.ExternalID != ""
}

// Get returns the value stored for a role.
func (e *Entry) Get(r profile.Role) string {
	switch r {
	case profile.RolePrimary:
		return e.Primary
	case profile.RolePhonetic:
		return e.Phonetic
	case profile.RoleTranslation:
		return e.Translation
	case profile.RoleExample:
		return e.Example
	case profile.RoleExampleTranslation:
		return e.ExampleTranslation
	case profile.RoleGrammar:
		return e.Grammar
	}
	return ""
}

// Set stores a value for a role.
func (e *Entry) Set(r profile.Role, v string) {
	switch r {
	case profile.RolePrimary:
		e.Primary = v
	case profile.RolePhonetic:
		e.Phonetic = v
	case profile.RoleTranslation:
		e.Translation = v
	case profile.RoleExample:
		e.Example = v
	case profile.RoleExampleTranslation:
		e.ExampleTranslation = v
	case profile.RoleGrammar:
		e.Grammar = v
	}
}

// Level is a proficiency level. Integer levels are persisted as JSON numbers so
// documents written by older tools keep their shape.
type Level string

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	if isCanonicalInt(string(l)) {
		return []byte(l), nil
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}
	*l = Level(s)
	return nil
}

// ExternalID is the flashcard service's id for a synced entry. Empty means
// not yet synced and is persisted as null.
type ExternalID string

// ExternalIDFromInt formats a numeric service id.
func ExternalIDFromInt(id int64) ExternalID {
	return ExternalID(strconv.FormatInt(id, 10))
}

// Int returns the numeric form of the id.
func (id ExternalID) Int() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// MarshalJSON implements json.Marshaler.
func (id ExternalID) MarshalJSON() ([]byte, error) {
	switch {
	case id == "":
		return []byte("null"), nil
	case isCanonicalInt(string(id)):
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("external_id: %w", err)
	}
	*id = ExternalID(s)
	return nil
}

// scalarString accepts null, a number or a string and returns its text.
func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return "", nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string, number or null, got %s", data)
	}
	return n.String(), nil
}

func isCanonicalInt(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == s
}
