package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSaveYAMLConfig_RoundTrip(t *testing.T) {
	s := validSettings()
	s.Advisory.Model = "gemini-1.5-pro"
	s.WebServer.Port = "8080"

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(configPath, s))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, "gemini-1.5-pro", loaded.Advisory.Model)
	assert.Equal(t, "8080", loaded.WebServer.Port)
	assert.Equal(t, s.Output.SQLite.Path, loaded.Output.SQLite.Path)
	assert.Equal(t, s.Classifier.Endpoint, loaded.Classifier.Endpoint)
}

func TestSaveYAMLConfig_ReplacesExistingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("stale: true\n"), 0o644))

	require.NoError(t, SaveYAMLConfig(configPath, validSettings()))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	// No temp files left behind by the atomic rename.
	entries, err := os.ReadDir(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetBasePath_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	got := GetBasePath(dir)

	assert.Equal(t, dir, got)
	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
