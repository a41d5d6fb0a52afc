package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads the first .env file found. Variables already present in
// the process environment win.
func loadEnvFile() {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			slog.Debug("Loaded environment file", slog.String("file", f))
			return
		}
	}
}
