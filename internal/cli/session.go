package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aidanlsb/lang/internal/anki"
	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/enrich"
	"github.com/aidanlsb/lang/internal/journal"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/undo"
	"github.com/aidanlsb/lang/internal/vocab"
)

// session carries everything one command invocation needs for a language.
type session struct {
	cfg     *config.Config
	profile *profile.Profile
	logger  *slog.Logger
	logFile *os.File
}

// openSession builds the per-invocation logger. When the log file cannot be
// opened the session logs nowhere rather than failing the command.
func openSession(cfg *config.Config, p *profile.Profile) *session {
	s := &session{cfg: cfg, profile: p}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = io.Discard
	path := cfg.LogPath(p.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			s.logFile = f
			w = f
		}
	}
	if s.logFile == nil && !isJSONOutput() {
		fmt.Fprintln(os.Stderr, ui.Warningf("could not open log file %s", path))
	}

	s.logger = slog.New(slog.NewJSONHandler(w, opts)).With("profile", p.ID)
	return s
}

// Close releases the log file.
func (s *session) Close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

// command renders "lang <id> <sub>" for remedies.
func (s *session) command(sub string) string {
	return fmt.Sprintf("lang %s %s", s.profile.ID, sub)
}

func (s *session) loadStore() (*vocab.Store, error) {
	st, err := vocab.Load(s.cfg.VocabPath(s.profile.ID), s.logger)
	if err != nil {
		return nil, withCode(ErrFileReadError, err)
	}
	return st, nil
}

func (s *session) saveStore(st *vocab.Store) error {
	if err := st.Save(s.cfg.VocabPath(s.profile.ID)); err != nil {
		return withCode(ErrFileWriteError, fmt.Errorf("failed to save vocabulary: %w", err))
	}
	return nil
}

func (s *session) undoLog() *undo.Log {
	return undo.New(undo.Path(s.cfg.LanguageDir(s.profile.ID), s.profile.ID))
}

// currentLevel is the level set by "level", or the profile default. A stored
// level the profile no longer accepts falls back to the default.
func (s *session) currentLevel() string {
	state, err := config.LoadState(s.cfg.StatePath(s.profile.ID))
	if err != nil {
		s.logger.Warn("could not read state", "error", err)
		return s.profile.Levels.Default
	}
	if state.CurrentLevel == "" {
		return s.profile.Levels.Default
	}
	level, err := s.profile.ParseLevel(state.CurrentLevel)
	if err != nil {
		s.logger.Warn("stored level is no longer valid", "level", state.CurrentLevel)
		return s.profile.Levels.Default
	}
	return level
}

func (s *session) enricher() enrich.Enricher {
	ai := s.cfg.AI
	return enrich.NewClient(ai.APIKey,
		enrich.WithBaseURL(ai.BaseURL),
		enrich.WithModel(ai.Model),
		enrich.WithTemperature(ai.Temperature),
		enrich.WithTimeout(ai.Timeout),
		enrich.WithLogger(s.logger),
	)
}

func (s *session) anki() *anki.Client {
	return anki.NewClient(s.cfg.Anki.URL,
		anki.WithTimeout(s.cfg.Anki.Timeout),
		anki.WithLogger(s.logger),
	)
}

func (s *session) openJournal() (*journal.Journal, error) {
	j, err := journal.Open(s.cfg.JournalPath())
	if err != nil {
		return nil, withCode(ErrDatabaseError, err)
	}
	return j, nil
}
