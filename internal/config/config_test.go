package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classgrid/internal/schedule"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Strip District", cfg.PreferredLocation)
	assert.Equal(t, schedule.DefaultBreakpoint, cfg.Breakpoint)
	assert.Equal(t, 3, cfg.Sheet.HeaderRow)
	assert.Equal(t, "B1", cfg.Sheet.UpdatedCell)
	assert.Len(t, cfg.Programs, len(schedule.DefaultPrograms))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
week_start: tuesday
log_level: LOUD
sources:
  - path: ./schedule.xlsx
  - url: https://example.com/schedule.json
    format: json
programs:
  - name: Adult BJJ
    style: bjj
    disciplines: ["Adult Brazilian Jiu Jitsu"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60, cfg.SessionMinutes)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "./schedule.xlsx", cfg.Sources[0].ID)
	assert.Equal(t, "auto", cfg.Sources[0].Format)
	assert.Equal(t, "json", cfg.Sources[1].Format)
	require.Len(t, cfg.Programs, 1)
	assert.Equal(t, []string{"Adult Brazilian Jiu Jitsu"}, cfg.Programs[0].Disciplines)
	assert.Equal(t, schedule.DefaultBeginnerKeywords, cfg.BeginnerKeywords)
}

func TestLoadRejectsInvalidSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - id: broken
    format: csv
`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLASSGRID_LISTEN", "0.0.0.0:7000")
	t.Setenv("CLASSGRID_BREAKPOINT", "1024")
	t.Setenv("CLASSGRID_PREFERRED_LOCATION", "Lawrenceville")
	t.Setenv("CLASSGRID_SOURCE", "https://example.com/sched.xlsx")
	t.Setenv("CLASSGRID_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Listen)
	assert.Equal(t, 1024, cfg.Breakpoint)
	assert.Equal(t, "Lawrenceville", cfg.PreferredLocation)
	assert.Equal(t, "https://example.com/sched.xlsx", cfg.Sources[0].URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.PreferredLocation = "Cranberry"
	cfg.Breakpoint = 900
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Cranberry", loaded.PreferredLocation)
	assert.Equal(t, 900, loaded.Breakpoint)
	assert.Equal(t, cfg.Sources, loaded.Sources)
}
