package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wiretidy/wiretidy/pkg/engine"
)

// configFileName is the project-local config file looked up in the
// working directory.
const configFileName = "wiretidy.toml"

// Config holds the TOML-configurable settings. Every field has a
// working default, so a missing config file is not an error.
type Config struct {
	Params  engine.Params `toml:"params"`
	Cache   CacheConfig   `toml:"cache"`
	Score   ScoreConfig   `toml:"score"`
	History HistoryConfig `toml:"history"`
	Server  ServerConfig  `toml:"server"`
}

// CacheConfig selects the cache backend. RedisURL takes priority over
// the file cache when set.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
	RedisURL string `toml:"redis_url"`

	// Scope prefixes all cache keys, so several projects can share one
	// Redis instance without collisions.
	Scope string `toml:"scope"`
}

// ScoreConfig configures the vision scorer. An empty APIKey falls back
// to the OPENAI_API_KEY environment variable.
type ScoreConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// HistoryConfig selects the run store. MongoURI takes priority over the
// file store when set.
type HistoryConfig struct {
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Params: engine.DefaultParams(),
		Server: ServerConfig{Addr: ":8420"},
	}
}

// loadConfig reads the config file. An explicit path must exist; with
// no path, the working directory and ~/.config/wiretidy/ are searched
// and defaults apply when neither has a file.
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfig()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Params = cfg.Params.Normalize()
	return cfg, nil
}

// findConfig returns the first config file found, or empty.
func findConfig() string {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}
	dir, err := configDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// APIKeyOrEnv returns the configured scorer API key, falling back to
// the OPENAI_API_KEY environment variable.
func (c *ScoreConfig) APIKeyOrEnv() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}
