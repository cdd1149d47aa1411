package cli

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/vocab"
)

// reportLogic reports a problem the user can fix. The command still exits 0.
func reportLogic(code, message, remedy string, details interface{}) error {
	if isJSONOutput() {
		outputError(code, message, details, remedy)
		return nil
	}
	fmt.Println(ui.Warning(message))
	if remedy != "" {
		fmt.Println()
		fmt.Println(ui.Tip(remedy))
	}
	return nil
}

// entryView is the JSON form of an entry, keyed by the profile's field names.
type entryView struct {
	Key        string            `json:"key"`
	Fields     map[string]string `json:"fields"`
	Level      string            `json:"level"`
	Container  string            `json:"container"`
	ExternalID string            `json:"external_id,omitempty"`
	Synced     bool              `json:"synced"`
	AddedAt    string            `json:"added_at,omitempty"`
}

func newEntryView(p *profile.Profile, key string, e *vocab.Entry) entryView {
	v := entryView{
		Key:        key,
		Fields:     make(map[string]string),
		Level:      string(e.Level),
		Container:  p.Container(string(e.Level)),
		ExternalID: string(e.ExternalID),
		Synced:     e.Synced(),
	}
	for _, r := range profile.Roles {
		if name := p.Fields.Name(r); name != "" {
			v.Fields[name] = e.Get(r)
		}
	}
	if !e.AddedAt.IsZero() {
		v.AddedAt = e.AddedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

// headline renders "primary (phonetic) - translation".
func headline(p *profile.Profile, e *vocab.Entry) string {
	var sb strings.Builder
	sb.WriteString(ui.AccentBold.Render(e.Primary))
	if p.Fields.HasPhonetic() && e.Phonetic != "" {
		fmt.Fprintf(&sb, " (%s)", e.Phonetic)
	}
	if e.Translation != "" {
		sb.WriteString(" - ")
		sb.WriteString(e.Translation)
	}
	return sb.String()
}

// printFields prints each populated field under its profile name.
func printFields(p *profile.Profile, e *vocab.Entry) {
	label := func(s string) string { return ui.Accent.Render(s + ":") }

	fmt.Printf("  %s %s\n", label(p.Fields.Primary), e.Primary)
	if p.Fields.HasPhonetic() && e.Phonetic != "" {
		fmt.Printf("  %s %s\n", label(p.Fields.Phonetic), e.Phonetic)
	}
	fmt.Printf("  %s %s\n", label(p.Fields.Translation), e.Translation)
	if e.Example != "" {
		fmt.Printf("  %s %s\n", label("Example"), e.Example)
		if e.ExampleTranslation != "" {
			fmt.Printf("           %s\n", ui.Muted.Render(e.ExampleTranslation))
		}
	}
	if e.Grammar != "" {
		fmt.Printf("  %s %s\n", label("Grammar"), e.Grammar)
	}
}
