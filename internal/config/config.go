// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	ParseInterval time.Duration
	EncryptionKey []byte // 32-byte AES-256 key; nil when not configured.
	GitHubToken   string
}

// HasEncryptionKey returns true when an encryption key is configured. Without
// one the API rejects plaintext material passwords rather than storing them
// in the clear.
func (c *Config) HasEncryptionKey() bool {
	return c.EncryptionKey != nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. CONFIGPANEL_ENCRYPTION_KEY, when set, must be
// 64 hex characters (a 32-byte AES-256 key). CONFIGPANEL_GITHUB_TOKEN, when
// set, authenticates revision lookups for private repositories.
// Variables with defaults: CONFIGPANEL_PARSE_INTERVAL (1m),
// CONFIGPANEL_LISTEN_ADDR (127.0.0.1:8153), CONFIGPANEL_DB_PATH (configpanel.db).
func Load() (*Config, error) {
	parseInterval := time.Minute
	if v, ok := os.LookupEnv("CONFIGPANEL_PARSE_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CONFIGPANEL_PARSE_INTERVAL has invalid duration %q: %w", v, err)
		}
		parseInterval = parsed
	}

	listenAddr := "127.0.0.1:8153"
	if v, ok := os.LookupEnv("CONFIGPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "configpanel.db"
	if v, ok := os.LookupEnv("CONFIGPANEL_DB_PATH"); ok {
		dbPath = v
	}

	var encryptionKey []byte
	if v, ok := os.LookupEnv("CONFIGPANEL_ENCRYPTION_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("CONFIGPANEL_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("CONFIGPANEL_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		encryptionKey = decoded
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		ParseInterval: parseInterval,
		EncryptionKey: encryptionKey,
		GitHubToken:   os.Getenv("CONFIGPANEL_GITHUB_TOKEN"),
	}, nil
}
