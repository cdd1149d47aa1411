package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

type profileInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Levels  []string `json:"levels"`
	Source  string   `json:"source"`
}

func newProfilesCmd(profiles []*profile.Profile, loadErrs []error) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available language profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isJSONOutput() {
				infos := make([]profileInfo, 0, len(profiles))
				for _, p := range profiles {
					infos = append(infos, profileInfo{
						ID:      p.ID,
						Name:    p.Name,
						Aliases: p.Aliases,
						Levels:  p.LevelChoices(),
						Source:  p.Source,
					})
				}
				var warnings []Warning
				for _, err := range loadErrs {
					warnings = append(warnings, Warning{Code: ErrProfileInvalid, Message: err.Error()})
				}
				outputSuccessWithWarnings(infos, warnings, &Meta{Count: len(infos)})
				return nil
			}

			tbl := ui.NewTable(4)
			for _, p := range profiles {
				names := ui.AccentBold.Render(p.ID)
				if len(p.Aliases) > 0 {
					names += ui.Muted.Render(" (" + strings.Join(p.Aliases, ", ") + ")")
				}
				tbl.AddRow(names, p.Name, p.Levels.Type, ui.Muted.Render(p.Source))
			}
			fmt.Print(tbl.String())
			for _, err := range loadErrs {
				fmt.Println(ui.Warning(err.Error()))
			}
			return nil
		},
	}
}
