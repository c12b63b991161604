package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/communityapp/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the flags
// handled here are picked out of args (see flagx.FilterArgs).
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("communityapp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.IdentityAPIKey, "k", cfg.IdentityAPIKey, "identity provider API key")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "secure store database path")
	fs.StringVar(&cfg.StorageSecret, "s", cfg.StorageSecret, "secure store secret")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format (text, json, zerolog)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
