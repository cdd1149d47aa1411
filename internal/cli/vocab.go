package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

const defaultVocabLimit = 5

func newVocabCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Show recent vocabulary",
		Args:  cobra.NoArgs,
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = defaultVocabLimit
			}
			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}
			items := st.Recent(limit)

			if isJSONOutput() {
				views := make([]entryView, 0, len(items))
				for _, it := range items {
					views = append(views, newEntryView(p, it.Key, it.Entry))
				}
				outputSuccess(views, &Meta{Count: st.Len()})
				return nil
			}

			if len(items) == 0 {
				fmt.Printf("No vocabulary found. Add some with `%s`!\n", s.command("new"))
				return nil
			}

			fmt.Printf("Showing last %d added words...\n", len(items))
			width := ui.NewDisplayContext().AvailableWidth(3)
			for i, it := range items {
				e := it.Entry
				fmt.Printf("\n%d. %s %s %s\n", i+1, ui.SyncMark(e.Synced()), ui.Bold.Render(e.Primary), ui.Muted.Render("("+p.LevelLabel(string(e.Level))+")"))

				detail := e.Translation
				if p.Fields.HasPhonetic() && e.Phonetic != "" {
					detail = e.Phonetic + " - " + e.Translation
				}
				if detail != "" {
					fmt.Printf("   %s\n", ui.Truncate(detail, width))
				}
			}
			if n := len(st.Unsynced()); n > 0 {
				fmt.Println()
				fmt.Println(ui.Hint(fmt.Sprintf("%s not yet in Anki. Run `%s`.", ui.Count(n, "word", "words"), s.command("sync"))))
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultVocabLimit, "Number of words to show")
	return cmd
}
