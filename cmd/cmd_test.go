package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns captured output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	SetOut(&buf)
	defer SetOut(os.Stdout)

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeConfig writes a minimal config file pointing the database at a
// temp directory and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "payd.yaml")
	content := fmt.Sprintf("database: %s\n", filepath.Join(dir, "payd.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Build Tag:")
	assert.Contains(t, out, "Go Version:")
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"build_tag"`)
	output = "" // reset for later tests
}

func TestExtensionsList(t *testing.T) {
	out, err := run(t, "extensions")
	require.NoError(t, err)
	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "proxmox")
	assert.Contains(t, out, "digitalocean")
	assert.Contains(t, out, "gateway:")
	assert.Contains(t, out, "stripe")
	assert.Contains(t, out, "other:")
	assert.Contains(t, out, "discordnotifications")
}

func TestExtensionsShow(t *testing.T) {
	out, err := run(t, "extensions", "show", "server", "proxmox")
	require.NoError(t, err)
	assert.Contains(t, out, "Name:        proxmox")
	assert.Contains(t, out, "Configuration:")
	assert.Contains(t, out, "host")
}

func TestExtensionsShowInvalidCategory(t *testing.T) {
	_, err := run(t, "extensions", "show", "servers", "proxmox")
	require.Error(t, err)
}

func TestExtensionsShowUnknownName(t *testing.T) {
	_, err := run(t, "extensions", "show", "server", "ghost")
	require.Error(t, err)
}

func TestGuide(t *testing.T) {
	out, err := run(t, "guide")
	require.NoError(t, err)
	assert.Contains(t, out, "payd")
}

func TestGuideNotFound(t *testing.T) {
	_, err := run(t, "guide", "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available:")
}

func TestUserCreateAndList(t *testing.T) {
	cfgPath := writeConfig(t)
	t.Setenv("PAYD_PASSWORD", "hunter22222")

	out, err := run(t, "user", "create", "root@example.com", "--admin", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "created admin user root@example.com")

	out, err = run(t, "user", "list", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "root@example.com")
	assert.Contains(t, out, "admin")
}

func TestServeRequiresSecret(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "serve", "-c", cfgPath)
	require.Error(t, err)
}
