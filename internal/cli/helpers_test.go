package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/testutil"
	"github.com/aidanlsb/lang/internal/vocab"
)

var captureStdoutMu sync.Mutex

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	captureStdoutMu.Lock()
	defer captureStdoutMu.Unlock()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w

	outputCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var buf bytes.Buffer
		_, copyErr := io.Copy(&buf, r)
		_ = r.Close()
		if copyErr != nil {
			errCh <- copyErr
			return
		}
		outputCh <- buf.String()
	}()

	fn()

	os.Stdout = orig
	_ = w.Close()
	select {
	case err := <-errCh:
		t.Fatalf("io.Copy: %v", err)
		return ""
	case output := <-outputCh:
		return output
	}
}

// testEnv is a config pointing at fake services and a temp data dir.
type testEnv struct {
	t        *testing.T
	cfg      *config.Config
	ai       *testutil.FakeAI
	anki     *testutil.FakeAnki
	profiles []*profile.Profile
}

var bonjourReply = map[string]string{
	"Expression":         "bonjour",
	"English":            "hello",
	"Example":            "Bonjour, tout le monde !",
	"ExampleTranslation": "Hello, everyone!",
	"Notes":              "",
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ai := testutil.NewFakeAI(t, bonjourReply)
	fa := testutil.NewFakeAnki(t)

	cfg := &config.Config{
		DataDir:     filepath.Join(dir, "data"),
		ProfilesDir: filepath.Join(dir, "profiles"),
		LogDir:      filepath.Join(dir, "logs"),
		AI: config.AIConfig{
			BaseURL:     ai.URL,
			Model:       "test-model",
			Temperature: 0.5,
			Timeout:     5 * time.Second,
			APIKey:      "test-key",
		},
		Anki: config.AnkiConfig{URL: fa.URL, Timeout: 5 * time.Second},
	}

	profiles, errs := profile.List(cfg.ProfilesDir)
	if len(errs) > 0 {
		t.Fatalf("profile.List: %v", errs)
	}

	prevNow := now
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	t.Cleanup(func() { now = prevNow })

	return &testEnv{t: t, cfg: cfg, ai: ai, anki: fa, profiles: profiles}
}

// run executes one CLI invocation and returns its stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := newRootCmd(e.cfg, e.profiles, nil)
	root.SetArgs(args)
	root.SetErr(io.Discard)

	var err error
	out := captureStdout(e.t, func() {
		err = root.ExecuteContext(context.Background())
	})
	return out, err
}

// mustRun fails the test when the invocation returns an error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("lang %v: %v\noutput:\n%s", args, err, out)
	}
	return out
}

func (e *testEnv) store(id string) *vocab.Store {
	e.t.Helper()
	st, err := vocab.Load(e.cfg.VocabPath(id), nil)
	if err != nil {
		e.t.Fatalf("vocab.Load: %v", err)
	}
	return st
}

// decodeResponse parses a JSON envelope.
func decodeResponse(t *testing.T, out string, data interface{}) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("expected JSON output, got parse error: %v; out=%s", err, out)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v; out=%s", err, out)
		}
	}
	return raw.Response
}
