package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeAI is an OpenAI-compatible chat completions server that answers every
// request with a fixed JSON object.
type FakeAI struct {
	URL string

	mu      sync.Mutex
	reply   map[string]string
	status  int
	prompts []string
}

// NewFakeAI starts a fake completions server that is closed when the test ends.
func NewFakeAI(t *testing.T, reply map[string]string) *FakeAI {
	t.Helper()
	f := &FakeAI{reply: reply, status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	f.URL = srv.URL
	t.Cleanup(srv.Close)
	return f
}

// SetReply changes the object returned by subsequent requests.
func (f *FakeAI) SetReply(reply map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// SetStatus makes subsequent requests fail with status.
func (f *FakeAI) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Prompts returns every prompt received.
func (f *FakeAI) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeAI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	for _, m := range req.Messages {
		f.prompts = append(f.prompts, m.Content)
	}

	w.Header().Set("Content-Type", "application/json")
	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error": {"message": "fake failure"}}`))
		return
	}
	content, _ := json.Marshal(f.reply)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": string(content)}}},
	})
}
