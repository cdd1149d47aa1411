package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/vocab"
)

func newShowCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	return &cobra.Command{
		Use:   "show <phrase>",
		Short: "Show one vocabulary entry",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}

			key := p.NormalizeKey(args[0])
			e, ok := st.Get(key)
			if !ok {
				return reportLogic(ErrEntryNotFound,
					fmt.Sprintf("'%s' is not in your vocabulary", strings.TrimSpace(args[0])),
					fmt.Sprintf("Use `%s \"%s\"` to add it.", s.command("new"), strings.TrimSpace(args[0])),
					nil)
			}

			if isJSONOutput() {
				outputSuccess(newEntryView(p, key, e), nil)
				return nil
			}

			display := ui.NewDisplayContext()
			out, err := ui.RenderMarkdown(entryMarkdown(p, e), display.AvailableWidth(ui.MarkdownRenderMargin*2))
			if err != nil {
				return handleError(err)
			}
			fmt.Print(out)
			return nil
		}),
	}
}

// entryMarkdown lays out an entry for glamour.
func entryMarkdown(p *profile.Profile, e *vocab.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", e.Primary)
	if p.Fields.HasPhonetic() && e.Phonetic != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", e.Phonetic)
	}
	if e.Translation != "" {
		fmt.Fprintf(&sb, "**%s:** %s\n\n", p.Fields.Translation, e.Translation)
	}
	if e.Example != "" {
		fmt.Fprintf(&sb, "**Example:** %s\n\n", e.Example)
		if e.ExampleTranslation != "" {
			fmt.Fprintf(&sb, "> %s\n\n", e.ExampleTranslation)
		}
	}
	if e.Grammar != "" {
		fmt.Fprintf(&sb, "**Grammar**\n\n%s\n\n", strings.TrimSpace(e.Grammar))
	}

	sb.WriteString("---\n\n")
	meta := []string{p.LevelLabel(string(e.Level)), p.Container(string(e.Level))}
	if !e.AddedAt.IsZero() {
		meta = append(meta, "added "+e.AddedAt.Local().Format("2006-01-02"))
	}
	if e.Synced() {
		meta = append(meta, "note "+string(e.ExternalID))
	} else {
		meta = append(meta, "not synced")
	}
	sb.WriteString(strings.Join(meta, " · "))
	sb.WriteString("\n")
	return sb.String()
}
