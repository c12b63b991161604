package config

import (
	"os"
	"time"
)

// Config holds runtime settings of the community app client.
type Config struct {
	BackendURL          string
	RequestTimeout      time.Duration
	RetryTimeout        time.Duration
	IdentityAPIKey      string
	IdentityEndpoint    string
	SecureTokenEndpoint string
	// StoragePath is the SQLite file of the secure store. Empty keeps
	// everything in memory for the lifetime of the process.
	StoragePath   string
	StorageSecret string
	LogFormat     string
	LogLevel      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://localhost:5001/api"
	c.RequestTimeout = 10 * time.Second
	c.RetryTimeout = 15 * time.Second
	c.IdentityEndpoint = "https://identitytoolkit.googleapis.com/v1"
	c.SecureTokenEndpoint = "https://securetoken.googleapis.com/v1"
	c.StoragePath = "communityapp.db"
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig over an explicit argument list.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
