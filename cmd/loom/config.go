package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all loom configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath         string `json:"db_path"`
	LogLevel       string `json:"log_level"`
	VacuumSchedule string `json:"vacuum_schedule"`
}

func defaultConfig() Config {
	return Config{
		DBPath:         filepath.Join(loomDir(), "loom.db"),
		LogLevel:       "info",
		VacuumSchedule: "0 3 * * *",
	}
}

func loomDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".loom"
	}
	return filepath.Join(home, ".loom")
}

func settingsPath() string {
	return filepath.Join(loomDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("LOOM_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOOM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOOM_VACUUM_SCHEDULE"); v != "" {
		cfg.VacuumSchedule = v
	}

	return cfg
}
