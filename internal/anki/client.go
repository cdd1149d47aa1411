// Package anki is a client for the AnkiConnect add-on (API version 6).
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultURL     = "http://localhost:8765"
	DefaultTimeout = 5 * time.Second
	apiVersion     = 6
)

// ErrUnreachable wraps transport failures: Anki is not running or the add-on is missing.
var ErrUnreachable = errors.New("could not connect to Anki (is Anki running with AnkiConnect installed?)")

// ServiceError is an error reported by AnkiConnect itself.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("anki %s: %s", e.Action, e.Message)
}

// Note is a new flashcard note.
type Note struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// Client talks to AnkiConnect over HTTP.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.client = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the AnkiConnect endpoint at url.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

func (c *Client) invoke(ctx context.Context, action string, params any, result any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("ankiconnect request failed", "action", action, "error", err)
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if r.Error != nil && *r.Error != "" {
		c.logger.Warn("ankiconnect action failed", "action", action, "error", *r.Error)
		return &ServiceError{Action: action, Message: *r.Error}
	}
	if result == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", action, err)
	}
	return nil
}

// Ping checks that AnkiConnect answers.
func (c *Client) Ping(ctx context.Context) error {
	var v int
	return c.invoke(ctx, "version", nil, &v)
}

// DeckNames lists every deck.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates a deck. Creating an existing deck is a no-op on the service side.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	return c.invoke(ctx, "createDeck", map[string]any{"deck": name}, nil)
}

// FindNotes returns the ids of notes matching a search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	if err := c.invoke(ctx, "findNotes", map[string]any{"query": query}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddNote creates a note and returns its id.
func (c *Client) AddNote(ctx context.Context, n Note) (int64, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	params := map[string]any{
		"note": map[string]any{
			"deckName":  n.Deck,
			"modelName": n.Model,
			"fields":    n.Fields,
			"tags":      tags,
		},
	}
	var id *int64
	if err := c.invoke(ctx, "addNote", params, &id); err != nil {
		return 0, err
	}
	if id == nil {
		return 0, &ServiceError{Action: "addNote", Message: "no note id returned"}
	}
	return *id, nil
}

// UpdateNoteFields overwrites fields of an existing note.
func (c *Client) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	params := map[string]any{
		"note": map[string]any{"id": id, "fields": fields},
	}
	return c.invoke(ctx, "updateNoteFields", params, nil)
}

// ModelNames lists every note type.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CardTemplate is one card layout of a model.
type CardTemplate struct {
	Name  string `json:"Name"`
	Front string `json:"Front"`
	Back  string `json:"Back"`
}

// CreateModel creates a note type.
func (c *Client) CreateModel(ctx context.Context, name string, fields []string, templates []CardTemplate, css string) error {
	params := map[string]any{
		"modelName":     name,
		"inOrderFields": fields,
		"cardTemplates": templates,
		"css":           css,
	}
	return c.invoke(ctx, "createModel", params, nil)
}

// UpdateModelTemplates replaces the front and back of the named templates.
func (c *Client) UpdateModelTemplates(ctx context.Context, name string, templates []CardTemplate) error {
	byName := make(map[string]map[string]string, len(templates))
	for _, t := range templates {
		byName[t.Name] = map[string]string{"Front": t.Front, "Back": t.Back}
	}
	params := map[string]any{
		"model": map[string]any{"name": name, "templates": byName},
	}
	return c.invoke(ctx, "updateModelTemplates", params, nil)
}

// UpdateModelStyling replaces a model's CSS.
func (c *Client) UpdateModelStyling(ctx context.Context, name, css string) error {
	params := map[string]any{
		"model": map[string]any{"name": name, "css": css},
	}
	return c.invoke(ctx, "updateModelStyling", params, nil)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `*`, `\*`, `_`, `\_`)

// SearchQuery builds a search matching notes whose field equals value exactly.
func SearchQuery(field, value string) string {
	return `"` + queryEscaper.Replace(field) + ":" + queryEscaper.Replace(value) + `"`
}

// EnsureModel creates the named note type, or refreshes its templates and
// styling when it already exists. created reports which happened.
func (c *Client) EnsureModel(ctx context.Context, name string, fields []string, templates []CardTemplate, css string) (created bool, err error) {
	models, err := c.ModelNames(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m == name {
			if err := c.UpdateModelTemplates(ctx, name, templates); err != nil {
				return false, err
			}
			return false, c.UpdateModelStyling(ctx, name, css)
		}
	}
	if err := c.CreateModel(ctx, name, fields, templates, css); err != nil {
		return false, err
	}
	return true, nil
}
