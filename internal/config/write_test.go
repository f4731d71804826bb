package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureConfigFile_CreatesLoadableTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	created, err := EnsureConfigFile(path, "/home/me/client.json")
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFilePermissions), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/home/me/client.json", cfg.Auth.CredentialsFile)
	assert.Equal(t, DefaultConfig().Games, cfg.Games)
}

func TestEnsureConfigFile_KeepsExisting(t *testing.T) {
	path := writeTestConfig(t, "[logging]\nlog_level = \"warn\"\n")

	created, err := EnsureConfigFile(path, "/other.json")
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[logging]\nlog_level = \"warn\"\n", string(data))
}

func TestAtomicWriteFile_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, atomicWriteFile(path, []byte("x = 1\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}
