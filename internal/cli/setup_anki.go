package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/anki"
	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

type setupResult struct {
	Model     string `json:"model"`
	Automatic bool   `json:"automatic"`
	Created   bool   `json:"created"`
}

func newSetupAnkiCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-anki",
		Short: "One-time setup for Anki",
		Long: `Check the AnkiConnect connection and create the note type used by sync.

An existing note type keeps its notes; its card templates and styling are
refreshed.`,
		Args: cobra.NoArgs,
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			model := p.Anki.ModelName

			if !isJSONOutput() {
				fmt.Printf("Setting up Anki integration for %s...\n", p.Name)
			}

			client := s.anki()
			if err := client.Ping(ctx); err != nil {
				return handleError(err)
			}
			if !isJSONOutput() {
				fmt.Println(ui.Success("Anki connection successful."))
			}

			res := setupResult{Model: model}
			var warnings []Warning

			nt, ok := profile.NoteTypeFor(p)
			if !ok {
				warnings = append(warnings, Warning{Code: "MANUAL_SETUP", Message: fmt.Sprintf("no automatic model setup available for %s", p.Name)})
				if !isJSONOutput() {
					fmt.Println(ui.Warningf("No automatic model setup available for %s.", p.Name))
					fmt.Printf("  Please create the '%s' model manually in Anki.\n", model)
				}
			} else {
				templates := make([]anki.CardTemplate, 0, len(nt.Templates))
				for _, t := range nt.Templates {
					templates = append(templates, anki.CardTemplate{Name: t.Name, Front: t.Front, Back: t.Back})
				}
				created, err := client.EnsureModel(ctx, nt.Name, nt.Fields, templates, nt.CSS)
				switch {
				case err != nil:
					s.logger.Warn("model setup failed", "model", model, "error", err)
					warnings = append(warnings, Warning{Code: "MANUAL_SETUP", Message: err.Error()})
					if !isJSONOutput() {
						fmt.Println(ui.Warningf("Could not set up model automatically: %v", err))
						fmt.Printf("  You may need to create '%s' manually in Anki.\n", model)
					}
				case created:
					res.Automatic, res.Created = true, true
					s.logger.Info("model created", "model", model)
					if !isJSONOutput() {
						fmt.Println(ui.Successf("Created '%s' model in Anki.", model))
					}
				default:
					res.Automatic = true
					s.logger.Info("model updated", "model", model)
					if !isJSONOutput() {
						fmt.Println(ui.Infof("'%s' model already exists; templates and styling updated.", model))
					}
				}
			}

			if isJSONOutput() {
				outputSuccessWithWarnings(res, warnings, nil)
				return nil
			}
			fmt.Printf("\nSetup complete! You can now use `%s` and `%s`.\n", s.command("new"), s.command("sync"))
			return nil
		}),
	}
}
