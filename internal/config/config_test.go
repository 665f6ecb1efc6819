package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 64, cfg.Signal.SendBuffer)
	assert.Equal(t, "drop", cfg.Signal.Backpressure)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.RequireToken)
	assert.False(t, cfg.Meetings.AutoCreate)
	assert.Equal(t, 2000, cfg.Chat.MaxLength)
	assert.Equal(t, 10*time.Second, cfg.Chat.RateInterval)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
port: 9090
ping_period: 20s
allowed_origins:
  - https://meet.example.com
signal:
  send_buffer: 8
  backpressure: kick
meetings:
  auto_create: true
chat:
  max_length: 100
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("MEET_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.PingPeriod)
	assert.Equal(t, []string{"https://meet.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 8, cfg.Signal.SendBuffer)
	assert.Equal(t, "kick", cfg.Signal.Backpressure)
	assert.True(t, cfg.Meetings.AutoCreate)
	assert.Equal(t, 100, cfg.Chat.MaxLength)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Chat.RateLimit)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signal:\n  send_buffer: 0\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoadUsesConfigEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.ci.yaml"), []byte("port: 7070\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_ENV", "ci")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}
