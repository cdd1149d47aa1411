package profile

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate validates the profile.
func (p *Profile) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required, validation.Match(idPattern)),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Aliases, validation.Each(validation.Match(idPattern))),
		validation.Field(&p.DefaultInputLang, validation.Required),
	); err != nil {
		return err
	}
	if err := p.Fields.Validate(); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if err := p.Levels.Validate(); err != nil {
		return fmt.Errorf("levels: %w", err)
	}
	if err := p.Anki.Validate(); err != nil {
		return fmt.Errorf("anki: %w", err)
	}
	if err := p.Anki.validateMapping(p.Fields); err != nil {
		return fmt.Errorf("anki: %w", err)
	}
	if err := p.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	return nil
}

// Validate validates the field names.
func (f *Fields) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Primary, validation.Required, validation.By(f.unique)),
		validation.Field(&f.Translation, validation.Required),
		validation.Field(&f.Example, validation.Required),
		validation.Field(&f.ExampleTranslation, validation.Required),
		validation.Field(&f.Grammar, validation.Required),
	)
}

func (f *Fields) unique(interface{}) error {
	seen := make(map[string]Role)
	for _, r := range Roles {
		n := f.Name(r)
		if n == "" {
			continue
		}
		if other, ok := seen[n]; ok {
			return fmt.Errorf("name %q used for both %s and %s", n, other, r)
		}
		seen[n] = r
	}
	return nil
}

// Validate validates the level scheme.
func (l *LevelScheme) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Type, validation.Required),
		validation.Field(&l.Values, validation.Required, validation.Each(validation.Required), validation.By(distinct)),
		validation.Field(&l.Default, validation.Required, validation.By(l.member)),
		validation.Field(&l.Special, validation.By(l.validSpecial)),
	)
}

func (l *LevelScheme) member(value interface{}) error {
	s, _ := value.(string)
	for _, v := range l.Values {
		if v == s {
			return nil
		}
	}
	if _, ok := l.Special[s]; ok {
		return nil
	}
	return fmt.Errorf("%q is not one of the level values", s)
}

func (l *LevelScheme) validSpecial(interface{}) error {
	for _, k := range sortedKeys(l.Special) {
		if strings.TrimSpace(k) == "" {
			return errors.New("special level must not be blank")
		}
		if strings.TrimSpace(l.Special[k]) == "" {
			return fmt.Errorf("special level %q has no container name", k)
		}
		for _, v := range l.Values {
			if v == k {
				return fmt.Errorf("special level %q is also a regular level", k)
			}
		}
	}
	return nil
}

func distinct(value interface{}) error {
	values, _ := value.([]string)
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return fmt.Errorf("duplicate level %q", v)
		}
		seen[v] = true
	}
	return nil
}

// Validate validates the flashcard configuration.
func (a *AnkiConfig) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.DeckPrefix, validation.When(a.UseLevels, validation.Required)),
		validation.Field(&a.DeckName, validation.When(!a.UseLevels, validation.Required)),
		validation.Field(&a.ModelName, validation.Required),
		validation.Field(&a.TagPrefix, validation.Required),
		validation.Field(&a.FieldMapping, validation.Required),
	)
}

// validateMapping checks that every mapped key is a logical field and that the
// primary field is mapped, since sync searches on it.
func (a *AnkiConfig) validateMapping(f Fields) error {
	if strings.TrimSpace(a.FieldMapping[f.Primary]) == "" {
		return fmt.Errorf("field_mapping must map the primary field %q", f.Primary)
	}
	for _, k := range sortedKeys(a.FieldMapping) {
		if _, ok := f.RoleOf(k); !ok {
			return fmt.Errorf("field_mapping key %q is not a profile field", k)
		}
		if strings.TrimSpace(a.FieldMapping[k]) == "" {
			return fmt.Errorf("field_mapping key %q has no target field", k)
		}
	}
	return nil
}

// Validate validates the prompt template.
func (a *AIConfig) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.PromptTemplate, validation.By(parsesAsTemplate)),
	)
}

func parsesAsTemplate(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := template.New("prompt").Option("missingkey=error").Parse(s); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
