package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvPaths lists the .env files consulted, in priority order.
func DotEnvPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "dev", "scripts", ".env"),
			filepath.Join(home, ".env"),
		)
	}
	return append(paths, ".env")
}

// LoadDotEnv loads the first existing file in paths into the process
// environment. Variables already set are never overridden. It returns the file
// loaded, or "" when none existed.
func LoadDotEnv(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return p, err
		}
		return p, nil
	}
	return "", nil
}
