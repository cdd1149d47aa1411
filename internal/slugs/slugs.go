// Package slugs normalizes free text into identifiers accepted by the flashcard service.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// Tag converts s into a flashcard tag: lowercased, whitespace removed, and
// transliterated to the ASCII subset tags tolerate ("HSK 1" -> "hsk1",
// "Débutant" -> "debutant").
func Tag(s string) string {
	compact := strings.Join(strings.Fields(strings.ToLower(s)), "")
	if compact == "" {
		return ""
	}
	tag := goslug.Make(compact)
	if tag == "" {
		return compact
	}
	return tag
}

// FileStem converts a profile id or name into a safe file name stem.
func FileStem(s string) string {
	stem := goslug.Make(strings.TrimSpace(s))
	if stem == "" {
		return "default"
	}
	return stem
}
