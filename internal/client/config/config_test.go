package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/communityapp/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5001/api", c.BackendURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 15*time.Second, c.RetryTimeout)
	assert.Equal(t, "communityapp.db", c.StoragePath)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	t.Setenv(flagx.ConfigPathEnv, "")
	path := writeTempJSON(t, "", "", map[string]any{
		"backend_url":     "https://json.example/api",
		"request_timeout": "20s",
		"log_level":       "debug",
	})

	cfg, err := Load([]string{"-c", path, "-a", "https://flag.example/api", "-x", "ignored"})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example/api", cfg.BackendURL)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.RetryTimeout)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv(flagx.ConfigPathEnv, "")

	_, err := Load([]string{"-config", "/nonexistent/cfg.json"})
	require.Error(t, err)
}
