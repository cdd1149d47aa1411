package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/lang/internal/atomicfile"
)

// StateVersion is the current state file schema version.
const StateVersion = 1

// State is mutable per-language runtime state.
type State struct {
	Version      int    `toml:"version"`
	CurrentLevel string `toml:"current_level,omitempty"`
}

// LoadState loads a state file. Returns a default state when the file does
// not exist.
func LoadState(path string) (*State, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}

	var state State
	if _, err := toml.DecodeFile(path, &state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &State{Version: StateVersion}, nil
		}
		return nil, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	if state.Version == 0 {
		state.Version = StateVersion
	}
	state.CurrentLevel = strings.TrimSpace(state.CurrentLevel)
	return &state, nil
}

// SaveState writes a state file atomically.
func SaveState(path string, state *State) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("state path is required")
	}
	if state == nil {
		state = &State{}
	}

	normalized := *state
	if normalized.Version == 0 {
		normalized.Version = StateVersion
	}
	normalized.CurrentLevel = strings.TrimSpace(normalized.CurrentLevel)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(normalized); err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write state %s: %w", path, err)
	}
	return nil
}
