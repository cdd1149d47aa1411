package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/journal"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

const defaultHistoryLimit = 10

type historyRun struct {
	ID         string            `json:"id"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	Created    int               `json:"created"`
	Updated    int               `json:"updated"`
	Failed     int               `json:"failed"`
	Failures   []journal.Outcome `json:"failures,omitempty"`
}

func newHistoryCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if limit <= 0 {
				limit = defaultHistoryLimit
			}

			j, err := s.openJournal()
			if err != nil {
				return handleError(fmt.Errorf("failed to open sync journal: %w", err))
			}
			defer j.Close()

			runs, err := j.Recent(ctx, p.ID, limit)
			if err != nil {
				return handleError(err)
			}

			var failures []journal.Outcome
			if len(runs) > 0 && runs[0].Failed > 0 {
				failures, err = j.Failures(ctx, runs[0].ID)
				if err != nil {
					return handleError(err)
				}
			}

			if isJSONOutput() {
				out := make([]historyRun, 0, len(runs))
				for i, r := range runs {
					hr := historyRun{
						ID:         r.ID,
						StartedAt:  r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
						FinishedAt: r.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
						Created:    r.Created,
						Updated:    r.Updated,
						Failed:     r.Failed,
					}
					if i == 0 {
						hr.Failures = failures
					}
					out = append(out, hr)
				}
				outputSuccess(out, &Meta{Count: len(out)})
				return nil
			}

			if len(runs) == 0 {
				fmt.Printf("No sync runs recorded yet. Run `%s` first.\n", s.command("sync"))
				return nil
			}

			tbl := ui.NewTable(4)
			tbl.AddRow(ui.Muted.Render("started"), ui.Muted.Render("added"), ui.Muted.Render("updated"), ui.Muted.Render("failed"))
			for _, r := range runs {
				tbl.AddRow(
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					fmt.Sprint(r.Created),
					fmt.Sprint(r.Updated),
					fmt.Sprint(r.Failed),
				)
			}
			fmt.Print(tbl.String())

			if len(failures) > 0 {
				fmt.Println()
				fmt.Println(ui.Header("Failures in latest run:"))
				for _, f := range failures {
					fmt.Printf("  %s %s %s: %s\n", ui.SymbolError, f.Primary, ui.Muted.Render("("+f.Container+")"), f.Error)
				}
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of runs to show")
	return cmd
}
