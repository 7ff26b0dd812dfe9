package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"EVENTFEED_OUTPUT", "EVENTFEED_SOURCES", "EVENTFEED_MAX_ITEMS",
	"EVENTFEED_TIMEOUT_SECONDS", "EVENTFEED_RATE_LIMIT_RPS", "EVENTFEED_LOG_LEVEL",
	"EVENTFEED_LOG_DEV", "EVENTFEED_ADDR", "ADMIN_SECRET",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, 200, cfg.MaxItems)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.InDelta(t, 2.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDev)
	assert.Equal(t, ":8081", cfg.Addr)
	assert.Empty(t, cfg.AdminToken)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTFEED_OUTPUT", "out/events.json")
	t.Setenv("EVENTFEED_MAX_ITEMS", "50")
	t.Setenv("EVENTFEED_TIMEOUT_SECONDS", "5")
	t.Setenv("EVENTFEED_RATE_LIMIT_RPS", "0")
	t.Setenv("EVENTFEED_LOG_DEV", "true")
	t.Setenv("ADMIN_SECRET", "  s3cret ")

	cfg := Load()
	assert.Equal(t, "out/events.json", cfg.Output)
	assert.Equal(t, 50, cfg.MaxItems)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.RateLimit)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, "s3cret", cfg.AdminToken)
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTFEED_MAX_ITEMS", "many")
	t.Setenv("EVENTFEED_TIMEOUT_SECONDS", "-3")
	t.Setenv("EVENTFEED_LOG_DEV", "maybe")

	cfg := Load()
	assert.Equal(t, DefaultMaxItems, cfg.MaxItems)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.False(t, cfg.LogDev)
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	base := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("EVENTFEED_OUTPUT=local.json\n"), 0o644))
	require.NoError(t, os.WriteFile(base, []byte("EVENTFEED_OUTPUT=base.json\nEVENTFEED_ADDR=:9000\n"), 0o644))

	// godotenv.Load does not override, so clear the empty placeholders first.
	require.NoError(t, os.Unsetenv("EVENTFEED_OUTPUT"))
	require.NoError(t, os.Unsetenv("EVENTFEED_ADDR"))

	require.NoError(t, LoadEnvFiles(local, base, filepath.Join(dir, "missing.env")))
	cfg := Load()
	assert.Equal(t, "local.json", cfg.Output)
	assert.Equal(t, ":9000", cfg.Addr)
}
