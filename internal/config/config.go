// Package config handles global lang configuration and per-language state.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aidanlsb/lang/internal/slugs"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultAIBaseURL     = "https://api.openai.com/v1"
	DefaultAIModel       = "gpt-4o-mini"
	DefaultAITemperature = 0.5
	DefaultAITimeout     = 45 * time.Second
	DefaultAnkiURL       = "http://localhost:8765"
	DefaultAnkiTimeout   = 5 * time.Second
)

// Config represents the global lang configuration.
type Config struct {
	// DataDir holds one directory per language plus the sync journal.
	DataDir string `toml:"data_dir" env:"LANG_DATA_DIR"`

	// ProfilesDir holds user language profiles (<id>.yaml). Profiles here
	// shadow the built-in ones.
	ProfilesDir string `toml:"profiles_dir" env:"LANG_PROFILES_DIR"`

	// LogDir receives one JSON log file per language.
	LogDir string `toml:"log_dir" env:"LANG_LOG_DIR"`

	AI   AIConfig   `toml:"ai"`
	Anki AnkiConfig `toml:"anki"`
	UI   UIConfig   `toml:"ui"`

	// Path is the file the config was read from. Empty when none existed.
	Path string `toml:"-"`
}

// AIConfig configures the enrichment endpoint.
type AIConfig struct {
	BaseURL     string        `toml:"base_url" env:"LANG_AI_BASE_URL"`
	Model       string        `toml:"model" env:"LANG_AI_MODEL"`
	Temperature float64       `toml:"temperature" env:"LANG_AI_TEMPERATURE"`
	Timeout     time.Duration `toml:"timeout" env:"LANG_AI_TIMEOUT"`
	APIKey      string        `toml:"api_key" env:"OPENAI_API_KEY"`
}

// AnkiConfig configures the AnkiConnect endpoint.
type AnkiConfig struct {
	URL     string        `toml:"url" env:"ANKI_CONNECT_URL"`
	Timeout time.Duration `toml:"timeout" env:"ANKI_CONNECT_TIMEOUT"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an ANSI color code ("0" to "255") or hex color ("#RRGGBB").
	Accent string `toml:"accent" env:"LANG_ACCENT"`
}

// Load reads the config at path, or at DefaultPath when path is empty, then
// applies environment overrides and defaults and validates the result. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{}
	var md toml.MetaData
	if _, err := os.Stat(path); err == nil {
		md, err = toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Path = path
	} else if !errors.Is(err, fs.ErrNotExist) || explicit {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDefaults(md, filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults(md toml.MetaData, configDir string) {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.ProfilesDir == "" {
		c.ProfilesDir = filepath.Join(configDir, "profiles")
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.DataDir, "logs")
	}
	c.DataDir = expandHome(c.DataDir)
	c.ProfilesDir = expandHome(c.ProfilesDir)
	c.LogDir = expandHome(c.LogDir)

	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultAIBaseURL
	}
	if c.AI.Model == "" {
		c.AI.Model = DefaultAIModel
	}
	if c.AI.Temperature == 0 && !md.IsDefined("ai", "temperature") && os.Getenv("LANG_AI_TEMPERATURE") == "" {
		c.AI.Temperature = DefaultAITemperature
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = DefaultAITimeout
	}
	if c.Anki.URL == "" {
		c.Anki.URL = DefaultAnkiURL
	}
	if c.Anki.Timeout == 0 {
		c.Anki.Timeout = DefaultAnkiTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.LogDir, validation.Required),
	); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Anki.Validate(); err != nil {
		return fmt.Errorf("anki: %w", err)
	}
	return nil
}

// Validate validates the AI configuration. A missing API key is reported when
// enrichment is attempted, not here, so commands that never enrich still work.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(time.Second)),
	)
}

// Validate validates the AnkiConnect configuration.
func (c *AnkiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(100*time.Millisecond)),
	)
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// LanguageDir is the per-language data directory.
func (c *Config) LanguageDir(id string) string {
	return filepath.Join(c.DataDir, slugs.FileStem(id))
}

// VocabPath is the vocabulary store for a language.
func (c *Config) VocabPath(id string) string {
	return filepath.Join(c.LanguageDir(id), "vocab.json")
}

// StatePath is the per-language state file.
func (c *Config) StatePath(id string) string {
	return filepath.Join(c.LanguageDir(id), "state.toml")
}

// LogPath is the per-language log file.
func (c *Config) LogPath(id string) string {
	return filepath.Join(c.LogDir, slugs.FileStem(id)+".log")
}

// JournalPath is the sync journal shared by all languages.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// DefaultPath returns the default config file path.
// Checks ~/.config/lang/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "lang", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "lang", "config.toml")
	}
	return filepath.Join(".", "config.toml")
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lang")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "lang")
	}
	return filepath.Join(".", "lang-data")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
