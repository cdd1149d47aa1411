package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/journal"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/reconcile"
	"github.com/aidanlsb/lang/internal/ui"
)

type syncOutcome struct {
	Key        string `json:"key"`
	Primary    string `json:"primary"`
	Action     string `json:"action"`
	Container  string `json:"container"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type syncSummary struct {
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	RunID    string        `json:"run_id,omitempty"`
	Outcomes []syncOutcome `json:"outcomes"`
}

func newSyncCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync new words to Anki (creates new or updates existing)",
		Long: `Send every word that is not yet in Anki.

Each word is looked up in Anki by its main field first. A matching note is
updated, otherwise a new note is created in the word's deck. Failed words
stay unsynced and are retried by the next sync.`,
		Args: cobra.NoArgs,
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}

			pending := len(st.Unsynced())
			if pending == 0 {
				if isJSONOutput() {
					outputSuccess(syncSummary{Outcomes: []syncOutcome{}}, nil)
					return nil
				}
				if st.Len() == 0 {
					fmt.Println("Vocabulary list is empty.")
				} else {
					fmt.Println(ui.Success("All vocabulary is already synced."))
				}
				return nil
			}

			client := s.anki()
			if err := client.Ping(ctx); err != nil {
				return handleError(err)
			}

			if !isJSONOutput() {
				fmt.Println("Syncing vocabulary to Anki...")
				fmt.Printf("Found %s to sync...\n", ui.Count(pending, "word", "words"))
			}

			opts := []reconcile.Option{reconcile.WithLogger(s.logger)}
			if !isJSONOutput() {
				opts = append(opts, reconcile.WithProgress(printProgress))
			}

			started := now()
			res, syncErr := reconcile.New(client, opts...).Reconcile(ctx, p, st, s.saveStore)
			finished := now()
			if res == nil {
				return handleError(syncErr)
			}

			var warnings []Warning
			runID, err := s.recordRun(ctx, journal.NewRun(p.ID, started, finished, res))
			if err != nil {
				s.logger.Warn("could not record sync run", "error", err)
				warnings = append(warnings, Warning{Code: WarnJournalFailed, Message: err.Error()})
			}
			if syncErr != nil {
				return handleError(syncErr)
			}

			if isJSONOutput() {
				summary := syncSummary{Created: res.Created, Updated: res.Updated, Failed: res.Failed, RunID: runID}
				summary.Outcomes = make([]syncOutcome, 0, len(res.Outcomes))
				for _, o := range res.Outcomes {
					out := syncOutcome{
						Key:        o.Key,
						Primary:    o.Primary,
						Action:     string(o.Action),
						Container:  o.Container,
						ExternalID: string(o.ExternalID),
					}
					if o.Err != nil {
						out.Error = o.Err.Error()
						warnings = append(warnings, Warning{Code: WarnSyncFailed, Message: out.Error, Key: o.Key})
					}
					summary.Outcomes = append(summary.Outcomes, out)
				}
				outputSuccessWithWarnings(summary, warnings, &Meta{Count: res.Attempted()})
				return nil
			}

			fmt.Println()
			fmt.Println(ui.Bold.Render("Sync complete!"))
			parts := []string{fmt.Sprintf("Added: %d", res.Created)}
			if res.Updated > 0 {
				parts = append(parts, fmt.Sprintf("Updated: %d", res.Updated))
			}
			if res.Failed > 0 {
				parts = append(parts, fmt.Sprintf("Failed: %d", res.Failed))
			}
			fmt.Printf("  %s\n", strings.Join(parts, ", "))
			if res.Failed > 0 {
				fmt.Println(ui.Hint(fmt.Sprintf("Failed words stay unsynced. Run `%s` again to retry them.", s.command("sync"))))
			}
			return nil
		}),
	}
}

func printProgress(n, total int, o reconcile.Outcome) {
	if o.DeckCreated {
		fmt.Printf("  Created Anki deck: %s\n", ui.Accent.Render(o.Container))
	}
	prefix := ui.Muted.Render(fmt.Sprintf("[%d/%d]", n, total))
	switch o.Action {
	case reconcile.ActionCreated:
		fmt.Printf("  %s %s Synced '%s'\n", prefix, ui.SymbolSuccess, o.Primary)
	case reconcile.ActionUpdated:
		fmt.Printf("  %s %s Updated '%s'\n", prefix, ui.SymbolUpdated, o.Primary)
	default:
		fmt.Printf("  %s %s Failed to sync '%s': %v\n", prefix, ui.SymbolError, o.Primary, o.Err)
	}
}

// recordRun writes the run to the journal. Journal problems never fail a sync.
func (s *session) recordRun(ctx context.Context, run *journal.Run) (string, error) {
	j, err := s.openJournal()
	if err != nil {
		return "", err
	}
	defer j.Close()
	return j.Record(context.WithoutCancel(ctx), run)
}
