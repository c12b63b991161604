// Package config loads runtime configuration for the community app client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config, or $COMMUNITYAPP_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   backend base URL
//	-k string   identity provider API key
//	-d string   secure store database path ("" keeps it in memory)
//	-s string   secure store secret
//	-t int      request timeout (seconds)
//	-l string   log format: text, json or zerolog
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "10s" or integer
// nanoseconds. Absent keys keep their previous value:
//
//	{
//	  "backend_url": "https://community.example.org/api",
//	  "request_timeout": "10s",
//	  "retry_timeout": "15s",
//	  "identity_api_key": "AIza...",
//	  "storage_path": "/var/lib/communityapp/client.db",
//	  "log_format": "json",
//	  "log_level": "debug"
//	}
package config
