package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// configError wraps a failure to load config.toml.
type configError struct {
	err error
}

func (e *configError) Error() string { return fmt.Sprintf("failed to load config: %v", e.err) }

func (e *configError) Unwrap() error { return e.err }

// Execute runs the CLI. Errors have already been printed when it returns.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) error {
	path, asJSON, first := earlyFlags(args)

	if loaded, err := config.LoadDotEnv(config.DotEnvPaths()...); err != nil && !asJSON {
		fmt.Fprintln(os.Stderr, ui.Warningf("could not load %s: %v", loaded, err))
	}

	cfg, err := config.Load(path)
	if err != nil {
		err = &configError{err: err}
		if !rootOnly(first) {
			jsonOutput = asJSON
			return report(handleError(err))
		}
		cfg = nil
	}

	var (
		profiles []*profile.Profile
		loadErrs []error
	)
	if cfg != nil {
		ui.ConfigureTheme(cfg.UI.Accent)
		profiles, loadErrs = profile.List(cfg.ProfilesDir)
	}

	root := newRootCmd(cfg, profiles, loadErrs)
	root.SetArgs(args)
	return report(root.ExecuteContext(ctx))
}

// report prints err as a one-line message on stderr unless it was already
// written as JSON.
func report(err error) error {
	if err != nil && !IsReported(err) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

// earlyFlags reads the flags needed before the command tree exists. The
// profile commands depend on the config, so --config is parsed twice.
func earlyFlags(args []string) (path string, asJSON bool, first string) {
	fs := pflag.NewFlagSet("lang", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.StringVar(&path, "config", "", "")
	fs.BoolVar(&asJSON, "json", false, "")
	fs.Bool("verbose", false, "")
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return path, asJSON, ""
	}
	if fs.NArg() > 0 {
		first = fs.Arg(0)
	}
	return path, asJSON, first
}

// rootOnly reports whether a command runs without config.
func rootOnly(first string) bool {
	switch first {
	case "", "version", "help", "completion":
		return true
	}
	return false
}

// reservedNames cannot be used as profile ids or aliases.
var reservedNames = map[string]bool{
	"profiles":   true,
	"version":    true,
	"help":       true,
	"completion": true,
}

func newRootCmd(cfg *config.Config, profiles []*profile.Profile, loadErrs []error) *cobra.Command {
	root := &cobra.Command{
		Use:   "lang",
		Short: "Capture vocabulary with AI enrichment and sync it to Anki",
		Long: `lang keeps a deduplicated vocabulary list per language. New words are
enriched by an AI service (translation, example sentence, grammar note)
and synced to Anki through AnkiConnect.

Each language profile is a command:

  lang fr new "bonjour"
  lang cn level 3
  lang fr sync

Run 'lang profiles' to list available languages.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Write debug-level entries to the language log")

	root.AddCommand(newVersionCmd())
	if cfg == nil {
		return root
	}
	root.AddCommand(newProfilesCmd(profiles, loadErrs))

	taken := make(map[string]bool, len(profiles))
	for name := range reservedNames {
		taken[name] = true
	}
	for _, p := range profiles {
		taken[p.ID] = true
	}
	for _, p := range profiles {
		if reservedNames[p.ID] {
			continue
		}
		var aliases []string
		for _, name := range p.Names()[1:] {
			if taken[name] {
				continue
			}
			taken[name] = true
			aliases = append(aliases, name)
		}
		root.AddCommand(newProfileCmd(cfg, p, aliases))
	}
	return root
}

// newProfileCmd builds "lang <id>" and every command beneath it.
func newProfileCmd(cfg *config.Config, p *profile.Profile, aliases []string) *cobra.Command {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	cmd := &cobra.Command{
		Use:     p.ID,
		Aliases: aliases,
		Short:   fmt.Sprintf("%s vocabulary", name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newLevelCmd(cfg, p),
		newNewCmd(cfg, p),
		newImportCmd(cfg, p),
		newVocabCmd(cfg, p),
		newShowCmd(cfg, p),
		newSyncCmd(cfg, p),
		newUndoCmd(cfg, p),
		newSetupAnkiCmd(cfg, p),
		newHistoryCmd(cfg, p),
	)
	return cmd
}

// runner is a RunE that receives an open session.
type runner func(s *session, cmd *cobra.Command, args []string) error

// withSession opens a session for the duration of one command.
func withSession(cfg *config.Config, p *profile.Profile, fn runner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s := openSession(cfg, p)
		defer s.Close()
		s.logger.Debug("command", "name", cmd.Name(), "args", args)
		return fn(s, cmd, args)
	}
}
