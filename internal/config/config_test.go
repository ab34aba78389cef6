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
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "dev", c.Auth.Mode)
	assert.Equal(t, 30*time.Second, c.Solver.DefaultTimeLimit.Std())
	assert.Equal(t, 4, c.Solver.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
solver:
  defaultTimeLimit: 10s
  maxTimeLimit: 1m
  workers: 2
rateLimit:
  rps: 5
  burst: 10
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Addr)
	assert.Equal(t, 10*time.Second, c.Solver.DefaultTimeLimit.Std())
	assert.Equal(t, 2, c.Solver.Workers)
	assert.InDelta(t, 5.0, c.RateLimit.RPS, 1e-12)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SOLVE_TIME_LIMIT", "3s")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Addr)
	assert.Equal(t, 3*time.Second, c.Solver.DefaultTimeLimit.Std())
}

func TestLoadRejectsBadAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "magic")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsHMACWithoutSecret(t *testing.T) {
	t.Setenv("AUTH_MODE", "hmac")
	_, err := Load("")
	assert.Error(t, err)
}
