package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceBuiltin marks a profile compiled into the binary.
const SourceBuiltin = "builtin"

// ErrProfileNotFound is returned when no profile matches a name.
var ErrProfileNotFound = errors.New("profile not found")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadError describes a profile file that could not be decoded or validated.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid profile %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type candidate struct {
	stem    string
	profile *Profile
	err     error
}

// Load resolves name against profile ids and aliases. Profiles in dir shadow
// built-in profiles with the same id. dir may be empty.
func Load(dir, name string) (*Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrProfileNotFound)
	}

	cands, err := collect(dir)
	if err != nil {
		return nil, err
	}

	// Exact id or file stem first so an alias never hides a real id.
	for _, c := range cands {
		if c.stem == name || (c.profile != nil && strings.ToLower(c.profile.ID) == name) {
			return c.result()
		}
	}
	for _, c := range cands {
		if c.profile != nil && c.profile.Matches(name) {
			return c.result()
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// List returns every valid profile sorted by id, plus the load errors for any
// profile files that were skipped.
func List(dir string) ([]*Profile, []error) {
	cands, err := collect(dir)
	if err != nil {
		return nil, []error{err}
	}

	var (
		out  []*Profile
		errs []error
	)
	for _, c := range cands {
		p, err := c.result()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, errs
}

// Parse decodes and validates a single profile document. stem is used as the
// id when the document does not set one.
func Parse(data []byte, stem, source string) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("failed to parse: %w", err)}
	}
	p.Source = source
	applyDefaults(&p, stem)

	if err := p.Validate(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return &p, nil
}

func (c candidate) result() (*Profile, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.profile, nil
}

// collect gathers disk profiles then any built-ins not shadowed by id or stem.
func collect(dir string) ([]candidate, error) {
	var cands []candidate
	seen := make(map[string]bool)

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read profiles directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isYAML(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			c := candidate{stem: stemOf(e.Name())}
			data, err := os.ReadFile(path)
			if err != nil {
				c.err = &LoadError{Source: path, Err: err}
			} else {
				c.profile, c.err = Parse(data, c.stem, path)
			}
			cands = append(cands, c)
			seen[c.stem] = true
			if c.profile != nil {
				seen[strings.ToLower(c.profile.ID)] = true
			}
		}
	}

	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in profiles: %w", err)
	}
	for _, e := range entries {
		stem := stemOf(e.Name())
		if seen[stem] {
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in profile %s: %w", e.Name(), err)
		}
		p, err := Parse(data, stem, SourceBuiltin)
		cands = append(cands, candidate{stem: stem, profile: p, err: err})
	}
	return cands, nil
}

func applyDefaults(p *Profile, stem string) {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = stem
	}
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	if p.DefaultInputLang == "" {
		p.DefaultInputLang = "en"
	}
	if p.Levels.Type == "" {
		p.Levels.Type = "Level"
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func stemOf(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}
