package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "json", cfg.Data.Backend)
	assert.Equal(t, 50, cfg.Data.AlertCapacity)
	assert.Equal(t, 10, cfg.Data.MemoryCapacity)
	assert.Equal(t, 3, cfg.Metrics.HistoryLimit)
	assert.Equal(t, "mistral", cfg.Summary.Model)
	assert.Equal(t, 90*time.Second, cfg.Summary.Timeout)
}

func TestLoadFile_YAMLOverlayAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsight.yaml")
	yaml := `
port: 9090
data:
  backend: sqlite
  simulation_capacity: 25
summary:
  driver: openai
  model: gpt-4o-mini
  timeout: 45s
intent:
  keywords:
    executive_agent: [briefing, digest]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("GRIDSIGHT_PORT", "7070")
	t.Setenv("GRIDSIGHT_API_KEYS", "k1, ,k2")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port, "env wins over file")
	assert.Equal(t, "sqlite", cfg.Data.Backend)
	assert.Equal(t, 25, cfg.Data.SimulationCapacity)
	assert.Equal(t, 50, cfg.Data.AlertCapacity, "untouched keys keep defaults")
	assert.Equal(t, "openai", cfg.Summary.Driver)
	assert.Equal(t, 45*time.Second, cfg.Summary.Timeout)
	assert.Equal(t, []string{"briefing", "digest"}, cfg.Intent.Keywords["executive_agent"])
	assert.Equal(t, []string{"k1", "k2"}, cfg.Auth.APIKeys)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad backend", func(c *Config) { c.Data.Backend = "postgres" }},
		{"bad driver", func(c *Config) { c.Summary.Driver = "bard" }},
		{"zero capacity", func(c *Config) { c.Data.MemoryCapacity = 0 }},
		{"bad sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 2 }},
		{"unknown agent", func(c *Config) { c.Intent.Keywords = map[string][]string{"weather_agent": {"rain"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, Defaults().Validate())
}
