// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSnoozeMinutes = 15
	defaultGraceMinutes  = 30
	defaultWindowDays    = 7
)

// SnoozeChoices are the durations offered when snoozing a reminder.
var SnoozeChoices = []time.Duration{
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
}

type Config struct {
	DBPath        string
	UserName      string
	SnoozeDelay   time.Duration
	MissedGrace   time.Duration
	WindowDays    int
	LookupBaseURL string
}

// Load reads MEDIFLOW_* variables from the environment. A .env file in the
// working directory is merged in first when present; a missing file is not an
// error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBPath:        os.Getenv("MEDIFLOW_DB_PATH"),
		UserName:      envOr("MEDIFLOW_USER_NAME", "You"),
		SnoozeDelay:   time.Duration(envInt("MEDIFLOW_SNOOZE_MINUTES", defaultSnoozeMinutes)) * time.Minute,
		MissedGrace:   time.Duration(envInt("MEDIFLOW_GRACE_MINUTES", defaultGraceMinutes)) * time.Minute,
		WindowDays:    envInt("MEDIFLOW_WINDOW_DAYS", defaultWindowDays),
		LookupBaseURL: os.Getenv("MEDIFLOW_OPENFDA_URL"),
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".mediflow", "mediflow.db")
	}
	if cfg.SnoozeDelay <= 0 {
		return Config{}, fmt.Errorf("config: snooze minutes must be positive")
	}
	if cfg.MissedGrace < 0 {
		return Config{}, fmt.Errorf("config: grace minutes must not be negative")
	}
	if cfg.WindowDays <= 0 {
		return Config{}, fmt.Errorf("config: window days must be positive")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
