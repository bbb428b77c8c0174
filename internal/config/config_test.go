package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.ComposeTTL)
	assert.Equal(t, 300*time.Millisecond, cfg.SimulatedLatency)
	assert.Equal(t, "healthcrm-attachments", cfg.MinioBucket)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: 9000\nlog_level: debug\ncompose_ttl: 5m\n"), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.ComposeTTL)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SIMULATED_LATENCY=1s\n"), 0o600))
	t.Setenv("CONFIG_FILE", "")
	t.Cleanup(func() { os.Unsetenv("SIMULATED_LATENCY") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SimulatedLatency)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:          8080,
			StorageDriver: DriverMemory,
			TokenTTL:      time.Hour,
			ComposeTTL:    time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres needs url", func(c *Config) { c.StorageDriver = DriverPostgres }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.StorageDriver = "mongo" }, "unknown storage driver"},
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"minio needs keys", func(c *Config) { c.MinioEndpoint = "localhost:9000" }, "MINIO_ACCESS_KEY"},
		{"negative latency", func(c *Config) { c.SimulatedLatency = -time.Second }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
