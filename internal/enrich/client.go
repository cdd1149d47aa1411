// Package enrich turns a raw phrase into a structured vocabulary payload by
// asking an OpenAI-compatible chat completions endpoint.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults used when no option overrides them.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.5
	DefaultTimeout     = 45 * time.Second
)

// Payload maps logical field names to values.
type Payload map[string]string

// Enricher produces a payload for a request.
type Enricher interface {
	Enrich(ctx context.Context, req Request) (Payload, error)
}

// Client calls the chat completions API through the OpenAI SDK. It makes
// exactly one request per Enrich call and never retries.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
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

// NewClient creates a client. An empty apiKey is accepted here and reported by Enrich.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sdk builds the SDK client. The base URL needs a trailing slash so that
// "chat/completions" is resolved beneath it.
func (c *Client) sdk() openai.Client {
	base := strings.TrimRight(c.baseURL, "/") + "/"
	return openai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(base),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
}

// Enrich implements Enricher.
func (c *Client) Enrich(ctx context.Context, req Request) (Payload, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	client := c.sdk()
	start := time.Now()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := strings.TrimSpace(apiErr.Message)
			if msg == "" {
				msg = apiErr.Error()
			}
			c.logger.Error("enrichment service error", "phrase", req.Phrase, "status", apiErr.StatusCode, "message", msg)
			return nil, &TransportError{StatusCode: apiErr.StatusCode, Err: errors.New(msg)}
		}
		c.logger.Error("enrichment request failed", "phrase", req.Phrase, "error", err)
		return nil, &TransportError{Err: err}
	}
	if len(completion.Choices) == 0 {
		return nil, &ParseError{Content: completion.RawJSON(), Err: fmt.Errorf("no choices in response")}
	}

	payload, err := ParsePayload(completion.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("enrichment reply unparseable", "phrase", req.Phrase, "error", err)
		return nil, err
	}

	primary := req.Profile.Fields.Primary
	if strings.TrimSpace(payload[primary]) == "" {
		return nil, &FieldError{Field: primary}
	}

	c.logger.Info("enriched phrase",
		"phrase", req.Phrase,
		"primary", payload[primary],
		"model", c.model,
		"duration", time.Since(start),
	)
	return payload, nil
}

// ParsePayload decodes a model reply into a flat payload. Markdown code fences
// around the object are tolerated. Non-string scalars are stringified; lists of
// scalars are joined with "; ".
func ParsePayload(content string) (Payload, error) {
	text := stripCodeFence(strings.TrimSpace(content))

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Content: content, Err: err}
	}
	if raw == nil {
		return nil, &ParseError{Content: content, Err: fmt.Errorf("reply is not a JSON object")}
	}

	out := make(Payload, len(raw))
	for k, v := range raw {
		s, err := stringify(v)
		if err != nil {
			return nil, &ParseError{Content: content, Err: fmt.Errorf("field %q: %w", k, err)}
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if _, nested := item.(map[string]any); nested {
				return "", fmt.Errorf("nested objects are not supported")
			}
			if _, nested := item.([]any); nested {
				return "", fmt.Errorf("nested lists are not supported")
			}
			s, _ := stringify(item)
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; "), nil
	}
	return "", fmt.Errorf("nested objects are not supported")
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
