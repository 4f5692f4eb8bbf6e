package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("nonexistent.yaml")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15, cfg.Scheduling.BufferMinutes)
	assert.Equal(t, 6, cfg.Scheduling.MaxDailyJobs)
	assert.True(t, cfg.Scheduling.WeatherGating)
	assert.Equal(t, 7, cfg.Scheduling.SearchWindowDays)
	assert.Equal(t, 2*time.Second, cfg.Scheduling.LockWait)
	assert.Equal(t, 35.0, cfg.Providers.Geo.AverageSpeedKmh)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment: production
server:
  port: 9000
scheduling:
  buffer_minutes: 30
  weather_gating: false
providers:
  geo:
    base_url: https://routing.internal
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Scheduling.BufferMinutes)
	assert.False(t, cfg.Scheduling.WeatherGating)
	assert.Equal(t, "https://routing.internal", cfg.Providers.Geo.BaseURL)
	// Untouched keys keep their defaults.
	assert.Equal(t, 6, cfg.Scheduling.MaxDailyJobs)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("FSV_SERVER_PORT", "9999")
	t.Setenv("FSV_ENVIRONMENT", "staging")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestSchedulingConfig_Buffer(t *testing.T) {
	assert.Equal(t, 15*time.Minute, config.SchedulingConfig{BufferMinutes: 15}.Buffer())
	assert.Equal(t, time.Duration(0), config.SchedulingConfig{}.Buffer())
}
