package reconcile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/vocab"
)

// grammarOpen starts the block that carries the grammar note inside the example field.
const grammarOpen = "<br><hr><div style='font-size: 16px; text-align: left; font-style: italic;'>"

var markdown = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
)

// Project builds the external field set for an entry.
//
// The example field also carries the grammar note, rendered from markdown
// below a separator, since the card template has no separate notes region.
// A phonetic value the mapping leaves out is sent under its logical name, and
// level-partitioned profiles fill level_field with the level label.
func Project(p *profile.Profile, e *vocab.Entry) (map[string]string, error) {
	fields := make(map[string]string, len(p.Anki.FieldMapping)+2)

	for logical, external := range p.Anki.FieldMapping {
		role, ok := p.Fields.RoleOf(logical)
		if !ok {
			continue
		}
		value := e.Get(role)
		if role == profile.RoleExample {
			combined, err := withGrammar(value, e.Grammar)
			if err != nil {
				return nil, err
			}
			value = combined
		}
		fields[external] = value
	}

	if p.Fields.HasPhonetic() {
		if _, mapped := p.Anki.FieldMapping[p.Fields.Phonetic]; !mapped && e.Phonetic != "" {
			fields[p.Fields.Phonetic] = e.Phonetic
		}
	}

	if p.Anki.UseLevels && p.Anki.LevelField != "" {
		fields[p.Anki.LevelField] = p.LevelLabel(string(e.Level))
	}
	return fields, nil
}

func withGrammar(example, grammar string) (string, error) {
	grammar = strings.TrimSpace(grammar)
	if grammar == "" {
		return example, nil
	}
	note, err := RenderNote(grammar)
	if err != nil {
		return "", err
	}
	return example + grammarOpen + note + "</div>", nil
}

// RenderNote converts a markdown note to HTML. A note that is a single
// paragraph is returned without its <p> wrapper.
func RenderNote(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render grammar note: %w", err)
	}
	out := strings.TrimSpace(buf.String())
	if strings.Count(out, "<p>") == 1 && strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out, nil
}
