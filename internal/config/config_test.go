package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 15*time.Second, cfg.Collaborators.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "RUB", cfg.Invoice.Currency)
	assert.Equal(t, uint32(5), cfg.Receipt.BreakerFailures)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "splitbill.yaml", `
log:
  level: debug
session:
  idle_timeout: 10m
http:
  addr: ":9000"
invoice:
  currency: EUR
`)
	dotenv := writeFile(t, ".env", "SPLITBILL_HTTP_ADDR=:9100\nSPLITBILL_REDIS_URL=redis://localhost:6379/0\n")
	t.Setenv("SPLITBILL_HTTP_ADDR", ":9200")
	t.Setenv("SPLITBILL_MAX_INPUT_SIZE", "128")

	cfg, err := Load(file, dotenv)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Session.LockTTL, "untouched defaults survive the merge")
	assert.Equal(t, "EUR", cfg.Invoice.Currency)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, ":9200", cfg.HTTP.Addr)
	assert.Equal(t, 128, cfg.MaxInputSize)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "session:\n  idle_timeout: soon\n"), "")
	assert.Error(t, err)

	_, err = Load(writeFile(t, "unknown.yaml", "sesion:\n  idle_timeout: 1m\n"), "")
	assert.Error(t, err)

	t.Setenv("SPLITBILL_LOG_FORMAT", "xml")
	_, err = Load("", "")
	assert.ErrorContains(t, err, "log.format")
}

func TestEnvVars(t *testing.T) {
	vars := EnvVars()
	assert.Contains(t, vars, "SPLITBILL_REDIS_URL")
	assert.Contains(t, vars, "SPLITBILL_MAX_INPUT_SIZE")
}
