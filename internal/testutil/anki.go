// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// FakeNote is a note held by FakeAnki.
type FakeNote struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// FakeAnki is an in-memory AnkiConnect server.
type FakeAnki struct {
	URL string

	mu       sync.Mutex
	decks    map[string]bool
	models   map[string]bool
	notes    map[int64]*FakeNote
	nextID   int64
	calls    []string
	failures map[string]string
	down     bool
	srv      *httptest.Server
}

// NewFakeAnki starts a fake AnkiConnect server that is closed when the test ends.
func NewFakeAnki(t *testing.T) *FakeAnki {
	t.Helper()
	f := &FakeAnki{
		decks:    map[string]bool{"Default": true},
		models:   map[string]bool{"Basic": true},
		notes:    make(map[int64]*FakeNote),
		nextID:   1700000000000,
		failures: make(map[string]string),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	f.URL = f.srv.URL
	t.Cleanup(f.srv.Close)
	return f
}

// AddDeck pre-creates a deck.
func (f *FakeAnki) AddDeck(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks[name] = true
}

// AddModel pre-creates a note type.
func (f *FakeAnki) AddModel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models[name] = true
}

// AddNote pre-creates a note and returns its id.
func (f *FakeAnki) AddNote(n FakeNote) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(n)
}

// FailAddNote makes addNote fail with msg for notes whose field equals value.
func (f *FakeAnki) FailAddNote(field, value, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[field+"\x00"+value] = msg
}

// SetDown makes every request fail at the transport level.
func (f *FakeAnki) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Calls returns the actions received so far, in order.
func (f *FakeAnki) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times action was received.
func (f *FakeAnki) CallCount(action string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == action {
			n++
		}
	}
	return n
}

// Decks returns every deck name, sorted.
func (f *FakeAnki) Decks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.decks)
}

// HasModel reports whether a note type exists.
func (f *FakeAnki) HasModel(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.models[name]
}

// Note returns a copy of the note with id.
func (f *FakeAnki) Note(id int64) (FakeNote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return FakeNote{}, false
	}
	return copyNote(n), true
}

// NoteCount returns the number of notes.
func (f *FakeAnki) NoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

type ankiRequest struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

type ankiNoteParams struct {
	Note struct {
		ID        int64             `json:"id"`
		DeckName  string            `json:"deckName"`
		ModelName string            `json:"modelName"`
		Fields    map[string]string `json:"fields"`
		Tags      []string          `json:"tags"`
	} `json:"note"`
}

func (f *FakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req ankiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, nil, "malformed request")
		return
	}
	f.calls = append(f.calls, req.Action)
	if req.Version != 6 {
		reply(w, nil, "unsupported version")
		return
	}

	switch req.Action {
	case "version":
		reply(w, 6, "")
	case "deckNames":
		reply(w, sortedKeys(f.decks), "")
	case "createDeck":
		var p struct {
			Deck string `json:"deck"`
		}
		_ = json.Unmarshal(req.Params, &p)
		f.decks[p.Deck] = true
		reply(w, int64(len(f.decks)), "")
	case "modelNames":
		reply(w, sortedKeys(f.models), "")
	case "createModel":
		var p struct {
			ModelName string `json:"modelName"`
		}
		_ = json.Unmarshal(req.Params, &p)
		if f.models[p.ModelName] {
			reply(w, nil, "Model name already exists")
			return
		}
		f.models[p.ModelName] = true
		reply(w, map[string]any{"name": p.ModelName}, "")
	case "updateModelTemplates", "updateModelStyling":
		var p struct {
			Model struct {
				Name string `json:"name"`
			} `json:"model"`
		}
		_ = json.Unmarshal(req.Params, &p)
		if !f.models[p.Model.Name] {
			reply(w, nil, "model was not found: "+p.Model.Name)
			return
		}
		reply(w, nil, "")
	case "findNotes":
		var p struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(req.Params, &p)
		reply(w, f.find(p.Query), "")
	case "addNote":
		var p ankiNoteParams
		_ = json.Unmarshal(req.Params, &p)
		n := FakeNote{Deck: p.Note.DeckName, Model: p.Note.ModelName, Fields: p.Note.Fields, Tags: p.Note.Tags}
		for k, v := range n.Fields {
			if msg, ok := f.failures[k+"\x00"+v]; ok {
				reply(w, nil, msg)
				return
			}
		}
		if !f.decks[n.Deck] {
			reply(w, nil, "deck was not found: "+n.Deck)
			return
		}
		reply(w, f.insert(n), "")
	case "updateNoteFields":
		var p ankiNoteParams
		_ = json.Unmarshal(req.Params, &p)
		n, ok := f.notes[p.Note.ID]
		if !ok {
			reply(w, nil, "note was not found")
			return
		}
		for k, v := range p.Note.Fields {
			n.Fields[k] = v
		}
		reply(w, nil, "")
	default:
		reply(w, nil, "unsupported action")
	}
}

func (f *FakeAnki) insert(n FakeNote) int64 {
	f.nextID++
	c := copyNote(&n)
	f.notes[f.nextID] = &c
	return f.nextID
}

// find supports the single quoted "field:value" form the client sends.
func (f *FakeAnki) find(query string) []int64 {
	query = strings.TrimSuffix(strings.TrimPrefix(query, `"`), `"`)
	field, value, ok := splitQuery(query)
	ids := []int64{}
	if !ok {
		return ids
	}
	for id, n := range f.notes {
		if n.Fields[field] == value {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func splitQuery(q string) (field, value string, ok bool) {
	var b strings.Builder
	escaped := false
	for _, r := range q {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':' && !ok:
			field = b.String()
			b.Reset()
			ok = true
		default:
			b.WriteRune(r)
		}
	}
	return field, b.String(), ok
}

func reply(w http.ResponseWriter, result any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	var e any
	if errMsg != "" {
		e = errMsg
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": e})
}

func copyNote(n *FakeNote) FakeNote {
	c := FakeNote{Deck: n.Deck, Model: n.Model, Fields: make(map[string]string, len(n.Fields))}
	for k, v := range n.Fields {
		c.Fields[k] = v
	}
	c.Tags = append([]string(nil), n.Tags...)
	return c
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
