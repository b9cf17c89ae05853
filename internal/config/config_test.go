package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/payd-dev/payd/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultListen, cfg.ListenAddr())
	assert.Equal(t, DefaultDatabase, cfg.DatabasePath())
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL())
	assert.Equal(t, DefaultIssuer, cfg.Issuer())
	assert.ErrorIs(t, cfg.RequireSecret(), ErrMissingSecret)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
database: /var/lib/payd/payd.db
base_url: https://billing.example.net
auth:
  jwt_secret: super-secret
  token_ttl: 1h
  issuer: billing
extensions:
  gateway:
    stripe:
      secret_key: sk_test_123
      mode: subscription
  server:
    proxmox:
      host: pve.example.net
notifiers: [discordnotifications]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr())
	assert.Equal(t, "/var/lib/payd/payd.db", cfg.DatabasePath())
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, "billing", cfg.Issuer())
	assert.NoError(t, cfg.RequireSecret())
	assert.Equal(t, []string{"discordnotifications"}, cfg.Notifiers)

	settings := cfg.Settings(extension.CategoryGateway, "Stripe")
	assert.Equal(t, "sk_test_123", settings.String("secret_key", ""))
	assert.Equal(t, "subscription", settings.String("mode", ""))
	assert.Equal(t, "https://billing.example.net", settings.String("base_url", ""))
}

func TestLoad_UnknownExtensionCategory(t *testing.T) {
	path := writeConfig(t, `
extensions:
  gateways:
    stripe: {}
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoad_TokenTTLTooShort(t *testing.T) {
	path := writeConfig(t, `
auth:
  token_ttl: 5s
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoad_BadLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level: loud`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSettings_UnconfiguredExtensionIsEmpty(t *testing.T) {
	cfg := &Config{}

	settings := cfg.Settings(extension.CategoryServer, "proxmox")
	assert.NotNil(t, settings)
	assert.Empty(t, settings)
}
