package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadStateMissingReturnsDefault(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "cn", "state.toml"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.Version != StateVersion || st.CurrentLevel != "" {
		t.Fatalf("state = %+v", st)
	}
}

func TestSaveAndLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cn", "state.toml")
	if err := SaveState(path, &State{CurrentLevel: " 3 "}); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `current_level = "3"`) {
		t.Fatalf("state file:\n%s", data)
	}
	st, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.CurrentLevel != "3" || st.Version != StateVersion {
		t.Fatalf("state = %+v", st)
	}
}

func TestLoadStateMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	if err := os.WriteFile(path, []byte("current_level = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStatePathRequired(t *testing.T) {
	if _, err := LoadState(" "); err == nil {
		t.Fatal("expected error")
	}
	if err := SaveState("", &State{}); err == nil {
		t.Fatal("expected error")
	}
}
