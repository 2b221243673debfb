package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SIMULADO_DATA_DIR", dir)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, filepath.Join(dir, "simulado.db"), cfg.DBPath())
	assert.Equal(t, 500*time.Millisecond, cfg.Study.CountDebounce)
	assert.Equal(t, 64, cfg.Study.AnswerQueueSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.PlanTTL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SIMULADO_DATA_DIR", t.TempDir())
	t.Setenv("SIMULADO_DB_DRIVER", "postgres")
	t.Setenv("SIMULADO_DB", "postgres://localhost/simulado?sslmode=disable")
	t.Setenv("SIMULADO_COUNT_DEBOUNCE", "250ms")
	t.Setenv("SIMULADO_ANSWER_QUEUE", "8")
	t.Setenv("SIMULADO_DISTINCT_STATS", "1")
	t.Setenv("SIMULADO_LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/simulado?sslmode=disable", cfg.DBPath())
	assert.Equal(t, 250*time.Millisecond, cfg.Study.CountDebounce)
	assert.Equal(t, 8, cfg.Study.AnswerQueueSize)
	assert.True(t, cfg.Study.DistinctStats)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_MalformedFallsBack(t *testing.T) {
	t.Setenv("SIMULADO_DATA_DIR", t.TempDir())
	t.Setenv("SIMULADO_ANSWER_QUEUE", "many")
	t.Setenv("SIMULADO_TOKEN_TTL", "forever")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Study.AnswerQueueSize)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.DB.Driver = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.DB.Driver = "postgres" }},
		{"zero queue", func(c *Config) { c.Study.AnswerQueueSize = 0 }},
		{"negative debounce", func(c *Config) { c.Study.CountDebounce = -time.Second }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSecret_GeneratedOnce(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()

	first, err := cfg.Secret()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := cfg.Secret()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(cfg.DataDir, "secret.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSecret_Configured(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Auth.JWTSecret = "s3cret"

	got, err := cfg.Secret()
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), got)
}
