package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wiretidy/wiretidy/pkg/cache"
	"github.com/wiretidy/wiretidy/pkg/pipeline"
	"github.com/wiretidy/wiretidy/pkg/report"
	"github.com/wiretidy/wiretidy/pkg/score"
)

// appName is the application name used for directories and display.
const appName = "wiretidy"

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner wired up from the config: cache
// backend, run store, and scorer.
func newRunner(ctx context.Context, cfg *Config, noCache bool) (*pipeline.Runner, error) {
	c, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}

	var keyer cache.Keyer
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Scope)
	}

	runner := pipeline.NewRunner(c, keyer, loggerFromContext(ctx))

	store, err := newStore(ctx, cfg)
	if err != nil {
		runner.Logger.Warn("run history disabled", "err", err)
	} else {
		runner.Store = store
	}

	if key := cfg.Score.APIKeyOrEnv(); key != "" {
		runner.Scorer = score.NewClient(score.Options{
			APIKey:  key,
			BaseURL: cfg.Score.BaseURL,
			Model:   cfg.Score.Model,
			Cache:   runner.Cache,
			Keyer:   runner.Keyer,
			TTL:     cache.TTLScore,
		})
	}

	return runner, nil
}

// newCache builds the cache backend from config. Cache failures degrade
// to a null cache rather than failing the command.
func newCache(ctx context.Context, cfg *Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisURL != "" {
		return cache.NewRedisCacheFromURL(ctx, cfg.Cache.RedisURL)
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// newStore builds the run store from config.
func newStore(ctx context.Context, cfg *Config) (report.Store, error) {
	if cfg.History.MongoURI != "" {
		db := cfg.History.MongoDB
		if db == "" {
			db = appName
		}
		return report.NewMongoStore(ctx, cfg.History.MongoURI, db)
	}
	return report.NewFileStore(cfg.History.Dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/wiretidy/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/wiretidy/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
