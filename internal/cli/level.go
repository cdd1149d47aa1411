package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

func newLevelCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	return &cobra.Command{
		Use:   "level <value>",
		Short: fmt.Sprintf("Set the current %s level", p.Levels.Type),
		Long: fmt.Sprintf(`Set the %s level used by 'new' and 'import' when --level is not given.

Valid levels: %s`, p.Levels.Type, strings.Join(p.LevelChoices(), ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: p.LevelChoices(),
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			level, err := p.ParseLevel(args[0])
			if err != nil {
				return handleError(err)
			}

			path := cfg.StatePath(p.ID)
			state, err := config.LoadState(path)
			if err != nil {
				return handleError(err)
			}
			state.CurrentLevel = level
			if err := config.SaveState(path, state); err != nil {
				return handleError(fmt.Errorf("failed to save level: %w", err))
			}
			s.logger.Info("level set", "level", level)

			if isJSONOutput() {
				outputSuccess(map[string]string{"profile": p.ID, "level": level}, nil)
				return nil
			}
			fmt.Println(ui.Successf("Set current %s context to %s", p.Levels.Type, ui.Bold.Render(level)))
			return nil
		}),
	}
}
