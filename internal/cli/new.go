package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/enrich"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/undo"
	"github.com/aidanlsb/lang/internal/vocab"
)

// now is replaced in tests.
var now = time.Now

func newNewCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	var (
		inputLang string
		context   string
		grammar   string
		force     bool
	)
	level := newLevelValue(p)

	cmd := &cobra.Command{
		Use:   "new <phrase>",
		Short: "Add a new word or phrase using AI",
		Long: `Enrich a word or phrase with the AI service and add it to the vocabulary.

The phrase can be in any language (see --lang). With --context the sentence
you saw it in becomes the example verbatim. With --grammar the AI expands
your own grammar note instead of writing one.

A word already in the vocabulary is left alone unless --force is given.
Use 'undo' to remove the word just added.`,
		Example: fmt.Sprintf(`  lang %[1]s new "to look forward to"
  lang %[1]s new "to look forward to" -c "Je me réjouis de te voir."
  lang %[1]s new "bonjour" --force`, p.ID),
		Args: cobra.ExactArgs(1),
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			phrase := strings.TrimSpace(args[0])
			if phrase == "" {
				return handleError(withCode(ErrInvalidInput, errors.New("phrase must not be empty")))
			}

			lvl := level.value
			if lvl == "" {
				lvl = s.currentLevel()
			}

			if !isJSONOutput() {
				fmt.Printf("Adding new word with %s context...\n", p.LevelLabel(lvl))
			}

			req := enrich.Request{
				Profile:     p,
				Phrase:      phrase,
				InputLang:   inputLang,
				Level:       lvl,
				Context:     verbatim(context),
				GrammarNote: strings.TrimSpace(grammar),
			}

			var spinner *ui.Spinner
			if !isJSONOutput() {
				spinner = ui.NewSpinner(os.Stdout, "Asking the AI")
				spinner.Start()
			}
			payload, err := s.enricher().Enrich(cmd.Context(), req)
			if spinner != nil {
				spinner.Stop()
			}
			if err != nil {
				s.logger.Error("enrichment failed", "phrase", phrase, "error", err)
				return handleError(fmt.Errorf("error adding new word: %w", err))
			}

			entry := vocab.FromFields(p.Fields, payload)
			if req.Context != "" {
				entry.Example = req.Context
			}
			entry.Level = vocab.Level(lvl)
			entry.AddedAt = now()
			key := p.NormalizeKey(entry.Primary)

			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}

			existing, exists := st.Get(key)
			if err := st.Upsert(key, entry, force); err != nil {
				var dup *vocab.DuplicateKeyError
				if errors.As(err, &dup) {
					// The undo slot keeps the last word actually added.
					return reportDuplicate(s, key, existing)
				}
				return handleError(err)
			}
			if err := s.saveStore(st); err != nil {
				return handleError(err)
			}
			s.logger.Info("entry added", "key", key, "level", lvl, "replaced", exists)

			var warnings []Warning
			action := undo.Action{Type: undo.ActionNew, Key: key}
			if exists {
				action.Previous = existing
			}
			if err := s.undoLog().Record(action); err != nil {
				s.logger.Warn("could not record undo", "key", key, "error", err)
				warnings = append(warnings, Warning{Code: WarnUndoNotSaved, Message: err.Error(), Key: key})
			}
			if exists {
				warnings = append(warnings, Warning{Code: WarnReplaced, Message: "replaced existing entry", Key: key})
			}

			if isJSONOutput() {
				outputSuccessWithWarnings(newEntryView(p, key, entry), warnings, nil)
				return nil
			}

			if exists {
				fmt.Println(ui.Warningf("Replacing existing entry for '%s'", entry.Primary))
			}
			printFields(p, entry)
			fmt.Println()
			fmt.Println(ui.Successf("Added '%s'. Use `%s` to revert.", entry.Primary, s.command("undo")))
			for _, w := range warnings {
				if w.Code == WarnUndoNotSaved {
					fmt.Println(ui.Warningf("undo is not available: %s", w.Message))
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&inputLang, "lang", p.DefaultInputLang, "Language of the input phrase")
	cmd.Flags().StringVarP(&context, "context", "c", "", "Sentence where you saw the phrase (used verbatim as the example)")
	cmd.Flags().StringVarP(&grammar, "grammar", "g", "", "Grammar note for the AI to expand")
	cmd.Flags().VarP(level, "level", "l", fmt.Sprintf("%s level for this word only (%s)", p.Levels.Type, strings.Join(p.LevelChoices(), ", ")))
	cmd.Flags().BoolVar(&force, "force", false, "Replace the entry if it already exists")
	return cmd
}

// verbatim returns the context sentence untouched, or "" when it is blank.
func verbatim(context string) string {
	if strings.TrimSpace(context) == "" {
		return ""
	}
	return context
}

// reportDuplicate shows the stored entry instead of overwriting it.
func reportDuplicate(s *session, key string, existing *vocab.Entry) error {
	p := s.profile
	s.logger.Info("duplicate entry", "key", key)
	remedy := fmt.Sprintf("Use `%s \"...\" --force` to replace this entry.", s.command("new"))

	if isJSONOutput() {
		outputError(ErrEntryExists, fmt.Sprintf("'%s' already exists", key), newEntryView(p, key, existing), remedy)
		return nil
	}

	fmt.Println(ui.Warning("This word already exists:"))
	fmt.Printf("  %s\n", headline(p, existing))
	if existing.Example != "" {
		fmt.Printf("  %s %s\n", ui.Accent.Render("Example:"), existing.Example)
	}
	fmt.Println()
	fmt.Println(ui.Tip(remedy))
	return nil
}
