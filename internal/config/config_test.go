package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader reads so tests control the whole
// environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"META_DB_PATH", "DATA_DB_PATH", "DATA_ENGINE", "LISTEN_ADDR",
		"LOG_LEVEL", "ENV", "MASTER_KEY_PASSPHRASE", "JWT_SECRET", "JWT_TTL",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUDIT_RETENTION_DAYS",
		"AUDIT_SWEEP_SCHEDULE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MASTER_KEY_PASSPHRASE", "correct horse battery staple")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "datashield_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, "sqlite3", cfg.DataEngine)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.Warnings, "default jwt secret should warn")
}

func TestLoadFromEnv_RequiresPassphrase(t *testing.T) {
	clearEnv(t)

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MASTER_KEY_PASSPHRASE")
}

func TestLoadFromEnv_InvalidEngine(t *testing.T) {
	clearEnv(t)
	t.Setenv("MASTER_KEY_PASSPHRASE", "x")
	t.Setenv("DATA_ENGINE", "postgres")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_ENGINE")
}

func TestLoadFromEnv_ProductionRejectsInsecureDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MASTER_KEY_PASSPHRASE", "x")
	t.Setenv("ENV", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	_, err = LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MASTER_KEY_PASSPHRASE", "x")
	t.Setenv("DATA_ENGINE", "duckdb")
	t.Setenv("RATE_LIMIT_RPS", "5.5")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.DataEngine)
	assert.Equal(t, 5.5, cfg.RateLimitRPS)
	assert.Equal(t, "30m0s", cfg.JWTTTL.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), "level %q", in)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\n\nMASTER_KEY_PASSPHRASE=\"from file\"\nLOG_LEVEL=debug\nbadline\n"), 0o600))

	// Pre-set values win over the file.
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from file", os.Getenv("MASTER_KEY_PASSPHRASE"))
	assert.Equal(t, "error", os.Getenv("LOG_LEVEL"))

	// A missing file is fine.
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "nope.env")))
}
