package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("TEST_JWT_SECRET", "super-secret")

	path := writeConfig(t, `
database:
  uri: ${TEST_MONGO_URI}
  name: clinic
jwt:
  secret: ${TEST_JWT_SECRET}
  account_token_ttl: 2h
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "super-secret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccountTokenTTL)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  uri: mongodb://localhost:27017
jwt:
  secret: s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.JWT.AccountTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AdminTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Outbox.Interval)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, `
database:
  uri: mongodb://localhost:27017
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestLoadRejectsMissingDatabaseURI(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database uri")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
