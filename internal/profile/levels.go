package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aidanlsb/lang/internal/slugs"
)

// ErrInvalidLevel is returned when a level is not part of the profile's scheme.
var ErrInvalidLevel = errors.New("invalid level")

// ParseLevel validates s against the profile's level values and special levels and
// returns it in canonical spelling ("b1" -> "B1").
func (p *Profile) ParseLevel(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, v := range p.Levels.Values {
		if strings.EqualFold(v, s) {
			return v, nil
		}
	}
	for k := range p.Levels.Special {
		if strings.EqualFold(k, s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q for %s: choose from %s", ErrInvalidLevel, s, p.Levels.Type, strings.Join(p.LevelChoices(), ", "))
}

// LevelChoices lists regular levels followed by special ones.
func (p *Profile) LevelChoices() []string {
	choices := append([]string{}, p.Levels.Values...)
	for _, k := range sortedKeys(p.Levels.Special) {
		choices = append(choices, k)
	}
	return choices
}

// IsSpecial reports whether level maps to a fixed container.
func (p *Profile) IsSpecial(level string) bool {
	_, ok := p.Levels.Special[level]
	return ok
}

// Container resolves the deck an entry at level is filed into.
//
// Level-partitioned profiles use deck_prefix+level, except special levels which
// name their deck outright. Flat profiles use deck_name, with special levels
// filed into a subdeck "<deck_name>::<special>".
func (p *Profile) Container(level string) string {
	if level == "" {
		level = p.Levels.Default
	}
	special, isSpecial := p.Levels.Special[level]
	if p.Anki.UseLevels {
		if isSpecial {
			return special
		}
		return p.Anki.DeckPrefix + level
	}
	if isSpecial {
		return p.Anki.DeckName + "::" + special
	}
	return p.Anki.DeckName
}

// Tag returns the flashcard tag for an entry at level.
func (p *Profile) Tag(level string) string {
	if level == "" {
		level = p.Levels.Default
	}
	if p.Anki.UseLevels {
		return slugs.Tag(p.Anki.TagPrefix + level)
	}
	return slugs.Tag(p.Anki.TagPrefix)
}

// LevelLabel renders a level for display, e.g. "HSK 3".
func (p *Profile) LevelLabel(level string) string {
	if level == "" {
		level = p.Levels.Default
	}
	if p.Levels.Type == "" {
		return level
	}
	return p.Levels.Type + " " + level
}
