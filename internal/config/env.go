package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var errNoEnvFile = errors.New("no .env file found")

// loadEnvFile loads .env and .env.local from dir into the process environment.
// Variables already present in the environment are never overridden.
func loadEnvFile(dir string) error {
	var found []string
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return errNoEnvFile
	}
	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	slog.Debug("Loaded environment variables", slog.Any("files", found))
	return nil
}
