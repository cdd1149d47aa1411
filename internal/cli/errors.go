// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"io/fs"

	"github.com/aidanlsb/lang/internal/anki"
	"github.com/aidanlsb/lang/internal/enrich"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/undo"
	"github.com/aidanlsb/lang/internal/vocab"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Configuration errors
	ErrConfigInvalid     = "CONFIG_INVALID"
	ErrProfileNotFound   = "PROFILE_NOT_FOUND"
	ErrProfileInvalid    = "PROFILE_INVALID"
	ErrMissingCredential = "MISSING_CREDENTIAL"

	// Service errors
	ErrEnrichmentFailed  = "ENRICHMENT_FAILED"
	ErrEnrichmentInvalid = "ENRICHMENT_INVALID"
	ErrAnkiUnreachable   = "ANKI_UNREACHABLE"
	ErrAnkiError         = "ANKI_ERROR"

	// Vocabulary errors
	ErrEntryExists   = "ENTRY_EXISTS"
	ErrEntryNotFound = "ENTRY_NOT_FOUND"
	ErrNothingToUndo = "NOTHING_TO_UNDO"
	ErrStaleUndo     = "STALE_UNDO"

	// File errors
	ErrFileNotFound   = "FILE_NOT_FOUND"
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Database errors
	ErrDatabaseError = "DATABASE_ERROR"

	// Input errors
	ErrInvalidInput = "INVALID_INPUT"
	ErrInvalidLevel = "INVALID_LEVEL"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnReplaced      = "ENTRY_REPLACED"
	WarnSkipped       = "ENTRY_SKIPPED"
	WarnJournalFailed = "JOURNAL_FAILED"
	WarnUndoNotSaved  = "UNDO_NOT_RECORDED"
	WarnSyncFailed    = "SYNC_FAILED"
)

// codedError tags an error raised by the command layer with its code.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func withCode(code string, err error) error {
	return &codedError{code: code, err: err}
}

// errorCode maps an error to its stable code and a remedy, if one exists.
func errorCode(err error) (code, suggestion string) {
	var (
		transportErr *enrich.TransportError
		parseErr     *enrich.ParseError
		fieldErr     *enrich.FieldError
		serviceErr   *anki.ServiceError
		dupErr       *vocab.DuplicateKeyError
		staleErr     *undo.StaleError
		loadErr      *profile.LoadError
		cfgErr       *configError
		coded        *codedError
	)

	switch {
	case errors.As(err, &coded):
		return coded.code, ""
	case errors.As(err, &cfgErr):
		return ErrConfigInvalid, "Check config.toml and the LANG_* environment variables"
	case errors.Is(err, enrich.ErrMissingCredential):
		return ErrMissingCredential, "Set OPENAI_API_KEY in the environment or a .env file"
	case errors.As(err, &transportErr):
		return ErrEnrichmentFailed, "Check the network connection and [ai] base_url, then retry"
	case errors.As(err, &parseErr), errors.As(err, &fieldErr):
		return ErrEnrichmentInvalid, "Retry, or rephrase the input"
	case errors.Is(err, anki.ErrUnreachable):
		return ErrAnkiUnreachable, "Start Anki with the AnkiConnect add-on installed"
	case errors.As(err, &serviceErr):
		return ErrAnkiError, ""
	case errors.As(err, &dupErr):
		return ErrEntryExists, "Pass --force to replace the entry"
	case errors.Is(err, undo.ErrNothingToUndo):
		return ErrNothingToUndo, ""
	case errors.As(err, &staleErr):
		return ErrStaleUndo, ""
	case errors.Is(err, profile.ErrProfileNotFound):
		return ErrProfileNotFound, "Run 'lang profiles' to see available languages"
	case errors.Is(err, profile.ErrInvalidLevel):
		return ErrInvalidLevel, ""
	case errors.As(err, &loadErr):
		return ErrProfileInvalid, ""
	case errors.Is(err, fs.ErrNotExist):
		return ErrFileNotFound, ""
	}
	return ErrInternal, ""
}
