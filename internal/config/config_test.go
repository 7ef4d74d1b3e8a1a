package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "brokerx.db", cfg.Database.DSN)
	assert.Equal(t, time.Second, cfg.Market.TickInterval)
	assert.Equal(t, 50, cfg.Notifications.Capacity)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9090
database:
  dsn: test.db
auth:
  jwt_secret: file-secret
market:
  tick_interval: 250ms
notifications:
  capacity: 5
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test.db", cfg.Database.DSN)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Market.TickInterval)
	assert.Equal(t, 5, cfg.Notifications.Capacity)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("BROKERX_PORT", "7000")
	t.Setenv("BROKERX_DB_DSN", "env.db")
	t.Setenv("BROKERX_JWT_SECRET", "env-secret")
	t.Setenv("BROKERX_TICK_INTERVAL", "3s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "env.db", cfg.Database.DSN)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.Market.TickInterval)
}

func TestInvalidDurationIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("market:\n  tick_interval: soon\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
