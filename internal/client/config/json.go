package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/communityapp/internal/flagx"
	"github.com/dmitrijs2005/communityapp/internal/timex"
)

// JSONConfig is a DTO used only for unmarshalling. Pointer fields tell an
// absent key from an empty value.
type JSONConfig struct {
	BackendURL          *string         `json:"backend_url"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	RetryTimeout        *timex.Duration `json:"retry_timeout"`
	IdentityAPIKey      *string         `json:"identity_api_key"`
	IdentityEndpoint    *string         `json:"identity_endpoint"`
	SecureTokenEndpoint *string         `json:"securetoken_endpoint"`
	StoragePath         *string         `json:"storage_path"`
	StorageSecret       *string         `json:"storage_secret"`
	LogFormat           *string         `json:"log_format"`
	LogLevel            *string         `json:"log_level"`
}

// parseJSON overlays cfg with the JSON file named by -c/-config or
// $COMMUNITYAPP_CONFIG. Without one it does nothing.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.IdentityAPIKey, jc.IdentityAPIKey)
	setString(&cfg.IdentityEndpoint, jc.IdentityEndpoint)
	setString(&cfg.SecureTokenEndpoint, jc.SecureTokenEndpoint)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.StorageSecret, jc.StorageSecret)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RetryTimeout != nil {
		cfg.RetryTimeout = jc.RetryTimeout.Duration
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
