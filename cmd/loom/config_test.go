package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0 3 * * *", cfg.VacuumSchedule)
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Setenv("LOOM_DB_PATH", "/tmp/override.db")
	t.Setenv("LOOM_LOG_LEVEL", "debug")
	t.Setenv("LOOM_VACUUM_SCHEDULE", "30 2 * * *")

	cfg := loadConfig()
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "30 2 * * *", cfg.VacuumSchedule)
}
