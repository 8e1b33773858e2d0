package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost:5432/sentinel
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "week", cfg.Analysis.Period)
	assert.Equal(t, 12, cfg.Analysis.Window)
	assert.Equal(t, 2.0, cfg.Analysis.Threshold)
	assert.Equal(t, 4, cfg.Analysis.Lookback)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.StartupDelay)
	assert.NotEmpty(t, cfg.Analysis.Countries)
}

func TestLoadFrom_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost:5432/sentinel
analysis:
  countries: [Sudan, Chad]
  period: month
  threshold: 3.5
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sudan", "Chad"}, cfg.Analysis.Countries)
	assert.Equal(t, "month", cfg.Analysis.Period)
	assert.Equal(t, 3.5, cfg.Analysis.Threshold)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_DATABASE_URL", "postgres://db:5432/sentinel")
	t.Setenv("SENTINEL_SERVER_PORT", "9999")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/sentinel", cfg.Database.URL)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadFrom_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing database url", `{}`},
		{"bad period", "database:\n  url: x\nanalysis:\n  period: fortnight\n"},
		{"window below floor", "database:\n  url: x\nanalysis:\n  window: 2\n"},
		{"empty countries", "database:\n  url: x\nanalysis:\n  countries: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
