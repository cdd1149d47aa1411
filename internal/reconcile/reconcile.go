// Package reconcile pushes unsynced vocabulary entries to the flashcard service.
//
// The service has no upsert, so each entry is matched by content: a search on
// the mapped primary field decides between updating the existing note and
// creating a new one. Success is recorded per entry through its external id,
// which makes a failed or interrupted run safe to repeat.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aidanlsb/lang/internal/anki"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/vocab"
)

// ErrExternalIDConflict means the matching note is already linked to another entry.
var ErrExternalIDConflict = errors.New("note already linked to another entry")

// ErrEmptyPrimary means the entry has no primary value to search on. An empty
// search would match every note with a blank primary field.
var ErrEmptyPrimary = errors.New("entry has no primary value")

// Flashcards is the subset of the flashcard service the reconciler needs.
type Flashcards interface {
	DeckNames(ctx context.Context) ([]string, error)
	CreateDeck(ctx context.Context, name string) error
	FindNotes(ctx context.Context, query string) ([]int64, error)
	AddNote(ctx context.Context, n anki.Note) (int64, error)
	UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error
}

// Action is what happened to one entry.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionFailed  Action = "failed"
)

// Outcome is the result for one entry.
type Outcome struct {
	Key        string
	Primary    string
	Container  string
	Action     Action
	ExternalID vocab.ExternalID
	// DeckCreated is set when this entry caused its container to be created.
	DeckCreated bool
	Err         error
}

// Result summarizes a run.
type Result struct {
	Created  int
	Updated  int
	Failed   int
	Outcomes []Outcome
}

// Attempted returns the number of entries processed.
func (r *Result) Attempted() int {
	return r.Created + r.Updated + r.Failed
}

// ProgressFunc is called after each entry with its 1-based position.
type ProgressFunc func(n, total int, o Outcome)

// Reconciler runs sync passes against one flashcard service.
type Reconciler struct {
	cards    Flashcards
	logger   *slog.Logger
	progress ProgressFunc

	// decks caches the service's deck list for one run. nil means not fetched.
	decks map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(r *Reconciler) { r.progress = fn }
}

// New creates a reconciler.
func New(cards Flashcards, opts ...Option) *Reconciler {
	r := &Reconciler{
		cards:  cards,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile syncs every unsynced entry in s, in persisted order, then calls
// persist exactly once whatever happened to individual entries. A cancelled
// context stops the loop early; completed entries are still persisted.
func (r *Reconciler) Reconcile(ctx context.Context, p *profile.Profile, s *vocab.Store, persist func(*vocab.Store) error) (*Result, error) {
	r.decks = nil
	pending := s.Unsynced()
	res := &Result{Outcomes: make([]Outcome, 0, len(pending))}

	var loopErr error
	for i, it := range pending {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		o := r.syncEntry(ctx, p, s, it)
		switch o.Action {
		case ActionCreated:
			res.Created++
		case ActionUpdated:
			res.Updated++
		default:
			res.Failed++
		}
		res.Outcomes = append(res.Outcomes, o)

		if o.Err != nil {
			r.logger.Warn("sync failed", "key", o.Key, "container", o.Container, "error", o.Err)
		} else {
			r.logger.Info("synced", "key", o.Key, "action", string(o.Action), "container", o.Container, "external_id", string(o.ExternalID))
		}
		if r.progress != nil {
			r.progress(i+1, len(pending), o)
		}
	}

	if err := persist(s); err != nil {
		return res, fmt.Errorf("failed to save vocabulary after sync: %w", err)
	}
	r.logger.Info("sync complete", "profile", p.ID, "created", res.Created, "updated", res.Updated, "failed", res.Failed)
	return res, loopErr
}

func (r *Reconciler) syncEntry(ctx context.Context, p *profile.Profile, s *vocab.Store, it vocab.Item) Outcome {
	e := it.Entry
	o := Outcome{
		Key:       it.Key,
		Primary:   e.Primary,
		Container: p.Container(string(e.Level)),
	}
	fail := func(err error) Outcome {
		o.Action = ActionFailed
		o.Err = err
		return o
	}

	if strings.TrimSpace(e.Primary) == "" {
		return fail(fmt.Errorf("%w: key %q", ErrEmptyPrimary, it.Key))
	}

	created, err := r.ensureDeck(ctx, o.Container)
	if err != nil {
		return fail(err)
	}
	o.DeckCreated = created

	fields, err := Project(p, e)
	if err != nil {
		return fail(err)
	}

	searchField := p.Anki.FieldMapping[p.Fields.Primary]
	ids, err := r.cards.FindNotes(ctx, anki.SearchQuery(searchField, e.Primary))
	if err != nil {
		return fail(err)
	}

	if len(ids) > 0 {
		id := vocab.ExternalIDFromInt(ids[0])
		if owner, ok := s.KeyForExternalID(id); ok && owner != it.Key {
			return fail(fmt.Errorf("%w: note %s belongs to %q", ErrExternalIDConflict, id, owner))
		}
		if err := r.cards.UpdateNoteFields(ctx, ids[0], fields); err != nil {
			return fail(err)
		}
		e.ExternalID = id
		o.Action = ActionUpdated
		o.ExternalID = id
		return o
	}

	noteID, err := r.cards.AddNote(ctx, anki.Note{
		Deck:   o.Container,
		Model:  p.Anki.ModelName,
		Fields: fields,
		Tags:   []string{p.Tag(string(e.Level))},
	})
	if err != nil {
		return fail(err)
	}
	e.ExternalID = vocab.ExternalIDFromInt(noteID)
	o.Action = ActionCreated
	o.ExternalID = e.ExternalID
	return o
}

// ensureDeck creates name when the cached deck list says it is absent. A
// failed listing leaves the cache empty so the next entry tries again.
func (r *Reconciler) ensureDeck(ctx context.Context, name string) (bool, error) {
	if r.decks == nil {
		names, err := r.cards.DeckNames(ctx)
		if err != nil {
			return false, err
		}
		r.decks = make(map[string]bool, len(names))
		for _, n := range names {
			r.decks[n] = true
		}
	}
	if r.decks[name] {
		return false, nil
	}
	if err := r.cards.CreateDeck(ctx, name); err != nil {
		return false, err
	}
	r.decks[name] = true
	r.logger.Info("created deck", "deck", name)
	return true, nil
}
