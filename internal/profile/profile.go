// Package profile describes a language as data: which fields enrichment produces,
// how proficiency levels are named, and how entries map onto flashcards.
//
// A Profile is loaded once per invocation and never mutated afterwards. Behavior
// elsewhere is selected by reading profile fields, not by branching on the
// language id.
package profile

import (
	"strings"
)

// Role identifies what a field means, independent of the name a profile gives it.
type Role string

// Field roles, in the order they are presented to the enrichment service.
const (
	RolePrimary            Role = "primary"
	RolePhonetic           Role = "phonetic"
	RoleTranslation        Role = "translation"
	RoleExample            Role = "example"
	RoleExampleTranslation Role = "example_translation"
	RoleGrammar            Role = "grammar"
)

// Roles lists every role in presentation order.
var Roles = []Role{
	RolePrimary,
	RolePhonetic,
	RoleTranslation,
	RoleExample,
	RoleExampleTranslation,
	RoleGrammar,
}

// Profile is the full description of one language.
type Profile struct {
	ID                  string      `yaml:"id"`
	Name                string      `yaml:"name"`
	Aliases             []string    `yaml:"aliases"`
	DefaultInputLang    string      `yaml:"default_input_lang"`
	CaseInsensitiveKeys *bool       `yaml:"case_insensitive_keys"`
	Fields              Fields      `yaml:"fields"`
	Levels              LevelScheme `yaml:"levels"`
	Anki                AnkiConfig  `yaml:"anki"`
	AI                  AIConfig    `yaml:"ai"`

	// Source is where the profile was loaded from ("builtin" or a file path).
	Source string `yaml:"-"`
}

// Fields holds the logical field names used for enrichment keys and as the
// left-hand side of the flashcard field mapping.
type Fields struct {
	Primary            string `yaml:"primary"`
	Phonetic           string `yaml:"phonetic"`
	Translation        string `yaml:"translation"`
	Example            string `yaml:"example"`
	ExampleTranslation string `yaml:"example_translation"`
	Grammar            string `yaml:"grammar"`
}

// LevelScheme describes valid proficiency levels.
type LevelScheme struct {
	// Type is the display label, e.g. "HSK" or "CEFR".
	Type    string   `yaml:"type"`
	Values  []string `yaml:"values"`
	Default string   `yaml:"default"`
	// Special maps a level to a fixed container name that bypasses the
	// level-derived naming rule.
	Special map[string]string `yaml:"special"`
}

// AnkiConfig maps entries onto the flashcard service.
type AnkiConfig struct {
	UseLevels    bool              `yaml:"use_levels"`
	DeckPrefix   string            `yaml:"deck_prefix"`
	DeckName     string            `yaml:"deck_name"`
	ModelName    string            `yaml:"model_name"`
	TagPrefix    string            `yaml:"tag_prefix"`
	LevelField   string            `yaml:"level_field"`
	FieldMapping map[string]string `yaml:"field_mapping"`
}

// AIConfig customizes the enrichment prompt.
type AIConfig struct {
	// PromptTemplate is a text/template rendered with Language, LevelType,
	// Level, Phrase and InputLang. When empty a generic teacher prompt is used.
	PromptTemplate string `yaml:"prompt_template"`
}

// CaseInsensitive reports whether lookup keys are lowercased. Defaults to true.
func (p *Profile) CaseInsensitive() bool {
	if p.CaseInsensitiveKeys == nil {
		return true
	}
	return *p.CaseInsensitiveKeys
}

// NormalizeKey derives the store lookup key from a primary value.
func (p *Profile) NormalizeKey(primary string) string {
	key := strings.TrimSpace(primary)
	if p.CaseInsensitive() {
		key = strings.ToLower(key)
	}
	return key
}

// Names returns every command name the profile answers to: its id then its aliases.
func (p *Profile) Names() []string {
	names := []string{p.ID}
	for _, a := range p.Aliases {
		a = strings.TrimSpace(a)
		if a != "" && a != p.ID {
			names = append(names, a)
		}
	}
	return names
}

// Matches reports whether name is the profile's id or one of its aliases.
func (p *Profile) Matches(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range p.Names() {
		if strings.ToLower(n) == name {
			return true
		}
	}
	return false
}

// Name returns the logical field name for a role, or "" when the profile has none.
func (f Fields) Name(r Role) string {
	switch r {
	case RolePrimary:
		return f.Primary
	case RolePhonetic:
		return f.Phonetic
	case RoleTranslation:
		return f.Translation
	case RoleExample:
		return f.Example
	case RoleExampleTranslation:
		return f.ExampleTranslation
	case RoleGrammar:
		return f.Grammar
	}
	return ""
}

// RoleOf returns the role a logical field name plays.
func (f Fields) RoleOf(name string) (Role, bool) {
	for _, r := range Roles {
		if n := f.Name(r); n != "" && n == name {
			return r, true
		}
	}
	return "", false
}

// HasPhonetic reports whether the language carries a pronunciation field.
func (f Fields) HasPhonetic() bool {
	return strings.TrimSpace(f.Phonetic) != ""
}
