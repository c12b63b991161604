package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/communityapp/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJSON_SourcesAndPrecedence(t *testing.T) {
	t.Setenv(flagx.ConfigPathEnv, "")

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"backend_url":      "https://www.example/api",
		"retry_timeout":    "30s",
		"identity_api_key": "k-1",
		"storage_path":     "",
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{StoragePath: "default.db", LogFormat: "text"}
		require.NoError(t, parseJSON(cfg, []string{"-config", path}))

		assert.Equal(t, "https://www.example/api", cfg.BackendURL)
		assert.Equal(t, 30*time.Second, cfg.RetryTimeout)
		assert.Equal(t, "k-1", cfg.IdentityAPIKey)
		assert.Empty(t, cfg.StoragePath)
		assert.Equal(t, "text", cfg.LogFormat, "absent keys keep their value")
	})

	t.Run("loads from environment", func(t *testing.T) {
		t.Setenv(flagx.ConfigPathEnv, path)

		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, nil))
		assert.Equal(t, "k-1", cfg.IdentityAPIKey)
	})

	t.Run("no file → no changes", func(t *testing.T) {
		cfg := &Config{BackendURL: "defaults", RequestTimeout: 42 * time.Second}
		require.NoError(t, parseJSON(cfg, nil))

		assert.Equal(t, "defaults", cfg.BackendURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJSON(&Config{}, []string{"-c", bad}))
	})
}
