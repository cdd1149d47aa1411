package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aidanlsb/lang/internal/profile"
)

func loadProfile(t *testing.T, id string) *profile.Profile {
	t.Helper()
	p, err := profile.Load("", id)
	if err != nil {
		t.Fatalf("load profile %s: %v", id, err)
	}
	return p
}

func TestBuildPromptListsProfileFields(t *testing.T) {
	cn := loadProfile(t, "cn")
	prompt, err := BuildPrompt(Request{Profile: cn, Phrase: "thank you", InputLang: "en", Level: "2"})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	for _, want := range []string{`"Hanzi"`, `"Pinyin"`, `"English"`, `"ExampleSentence"`, `"ExampleTranslation"`, `"Grammar"`, "HSK level 2", `"thank you"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %s:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "verbatim") {
		t.Error("no context given, example should not be verbatim")
	}
}

func TestBuildPromptContextAndGrammar(t *testing.T) {
	fr := loadProfile(t, "fr")
	prompt, err := BuildPrompt(Request{
		Profile:     fr,
		Phrase:      "j'suis crevé",
		InputLang:   "fr",
		Level:       "B1",
		Context:     "J'suis crevé, j'vais m'coucher.",
		GrammarNote: "contraction of je suis",
	})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	for _, want := range []string{
		"verbatim",
		"J'suis crevé, j'vais m'coucher.",
		"Expand on the student's grammar note",
		"contraction of je suis",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Pinyin") || strings.Contains(prompt, "romanization") {
		t.Error("french prompt should not request a phonetic field")
	}
	if !strings.Contains(prompt, "French language teacher") {
		t.Errorf("custom template not rendered:\n%s", prompt)
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Payload
		wantErr bool
	}{
		{"plain", `{"Expression": "bonjour", "English": "hello"}`, Payload{"Expression": "bonjour", "English": "hello"}, false},
		{"fenced", "```json\n{\"Expression\": \"salut\"}\n```", Payload{"Expression": "salut"}, false},
		{"scalars", `{"Level": 3, "Formal": false, "Notes": null}`, Payload{"Level": "3", "Formal": "false", "Notes": ""}, false},
		{"list", `{"Example": ["a", "b"]}`, Payload{"Example": "a; b"}, false},
		{"nested", `{"Example": {"text": "a"}}`, nil, true},
		{"prose", `Sure! Here is your word.`, nil, true},
		{"array", `["bonjour"]`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload(tt.content)
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("err = %v, want ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePayload: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

// sentRequest is the part of a chat completions request the tests inspect.
type sentRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
}

func chatServer(t *testing.T, status int, content string) (*httptest.Server, *sentRequest) {
	t.Helper()
	var seen sentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&seen)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestClientEnrich(t *testing.T) {
	fr := loadProfile(t, "fr")
	srv, seen := chatServer(t, http.StatusOK, `{"Expression": "Bonjour", "English": "hello", "Example": "Bonjour !", "ExampleTranslation": "Hello!", "Notes": ""}`)

	c := NewClient("test-key", WithBaseURL(srv.URL+"/"), WithModel("test-model"), WithTemperature(0.2))
	payload, err := c.Enrich(context.Background(), Request{Profile: fr, Phrase: "hello", InputLang: "en", Level: "B1"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if payload["Expression"] != "Bonjour" || payload["English"] != "hello" {
		t.Fatalf("payload = %v", payload)
	}
	if seen.Model != "test-model" || seen.Temperature != 0.2 {
		t.Fatalf("request = %+v", seen)
	}
	if len(seen.Messages) != 1 || seen.Messages[0].Role != "user" || !strings.Contains(seen.Messages[0].Content, `"hello"`) {
		t.Fatalf("messages = %+v", seen.Messages)
	}
}

func TestClientMissingCredential(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Fatalf("made %d calls without a key", calls)
	}
}

func TestClientNon2xxIsTransportError(t *testing.T) {
	srv, _ := chatServer(t, http.StatusTooManyRequests, "")
	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if te.StatusCode != http.StatusTooManyRequests || !strings.Contains(te.Error(), "quota exceeded") {
		t.Fatalf("TransportError = %v", te)
	}
}

func TestClientUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient("test-key", WithBaseURL(url))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("err = %v, want unreachable TransportError", err)
	}
}

func TestClientMissingPrimaryIsFieldError(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, `{"English": "hello"}`)
	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "Expression" {
		t.Fatalf("err = %v, want FieldError for Expression", err)
	}
}

func TestClientDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream overloaded"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want TransportError with status 500", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want exactly one request", calls)
	}
}

func TestClientUnparseableReply(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, "I cannot help with that.")
	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Enrich(context.Background(), Request{Profile: loadProfile(t, "fr"), Phrase: "x"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
}
