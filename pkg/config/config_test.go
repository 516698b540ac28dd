package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadForService_PrefixOverrides(t *testing.T) {
	t.Setenv("DB_NAME", "shared")
	t.Setenv("USERS_DB_NAME", "users_db")
	t.Setenv("USERS_HTTP_PORT", "8081")
	t.Setenv("EVENT_BROKER", "NSQ")
	t.Setenv("NSQ_LOOKUPD_ADDRS", "a:4161, b:4161,")

	cfg := LoadForService("users")

	assert.Equal(t, "users", cfg.ServiceName)
	assert.Equal(t, "users_db", cfg.DBName)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, BrokerNSQ, cfg.EventBroker)
	assert.Equal(t, []string{"a:4161", "b:4161"}, cfg.NSQLookupd)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("D_SECONDS", "15")
	t.Setenv("D_GO", "250ms")
	t.Setenv("D_BAD", "soon")

	assert.Equal(t, 15*time.Second, getEnvDuration("D_SECONDS", time.Minute))
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("D_GO", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("D_BAD", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("D_UNSET", time.Minute))
}

func TestBreakers_FileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breakers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  timeout: 5s\n"), 0o600))

	t.Setenv("BREAKER_CONSECUTIVE_FAILURES", "7")
	t.Setenv("BREAKER_CONFIG_FILE", path)

	cfg := Load()
	defaults, opts, err := cfg.Breakers()

	require.NoError(t, err)
	assert.Len(t, opts, 1)
	assert.Equal(t, 5*time.Second, defaults.Timeout)
	assert.Equal(t, uint32(7), defaults.ConsecutiveFailures)
}

func TestBreakers_MissingFile(t *testing.T) {
	cfg := Load()
	cfg.BreakerConfigFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, _, err := cfg.Breakers()
	assert.Error(t, err)
}
