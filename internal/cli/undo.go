package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/undo"
)

func newUndoCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last word addition",
		Long: `Remove the word added by the most recent 'new'. When that 'new' replaced
an existing entry with --force, the replaced entry is put back.

Undo is one level deep: a second undo reports that there is nothing to undo.`,
		Args: cobra.NoArgs,
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}

			log := s.undoLog()
			undone, err := log.Apply(st)
			if err != nil {
				var stale *undo.StaleError
				switch {
				case errors.Is(err, undo.ErrNothingToUndo):
					return reportLogic(ErrNothingToUndo, "No 'new' action to undo.", "", nil)
				case errors.As(err, &stale):
					s.logger.Warn("undo target missing", "key", stale.Key)
					return reportLogic(ErrStaleUndo, fmt.Sprintf("Could not find '%s' to undo.", stale.Key), "", nil)
				}
				return handleError(err)
			}

			if err := s.saveStore(st); err != nil {
				return handleError(err)
			}
			if err := log.Clear(); err != nil {
				s.logger.Warn("could not clear undo slot", "error", err)
			}
			s.logger.Info("undo", "key", undone.Key, "restored", undone.Restored != nil)

			if isJSONOutput() {
				outputSuccess(newEntryView(p, undone.Key, undone.Removed), nil)
				return nil
			}
			if undone.Restored != nil {
				fmt.Println(ui.Successf("Undid the replacement of '%s'; the previous entry is back.", undone.Restored.Primary))
				return nil
			}
			fmt.Println(ui.Successf("Undid the addition of '%s'.", undone.Removed.Primary))
			return nil
		}),
	}
}
