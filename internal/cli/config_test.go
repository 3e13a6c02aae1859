package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("explicit missing config path should fail")
	}

	// No path at all falls back to defaults.
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Params.MaxIterations == 0 {
		t.Error("default params not applied")
	}
	if cfg.Server.Addr != ":8420" {
		t.Errorf("Server.Addr = %q, want :8420", cfg.Server.Addr)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiretidy.toml")
	content := `
[params]
base_offset = 20.0
max_iterations = 5

[cache]
dir = "/tmp/wt-cache"
scope = "plant42"

[score]
model = "gpt-4o-mini"

[server]
addr = ":9000"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Params.BaseOffset != 20 {
		t.Errorf("BaseOffset = %v, want 20", cfg.Params.BaseOffset)
	}
	if cfg.Params.MaxIterations != 5 {
		t.Errorf("MaxIterations = %v, want 5", cfg.Params.MaxIterations)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Params.MaxOffset != 50 {
		t.Errorf("MaxOffset = %v, want default 50", cfg.Params.MaxOffset)
	}
	if !cfg.Params.PreserveExistingWires {
		t.Error("PreserveExistingWires should default to true")
	}
	if cfg.Cache.Dir != "/tmp/wt-cache" || cfg.Cache.Scope != "plant42" {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.Score.Model != "gpt-4o-mini" {
		t.Errorf("Score.Model = %q", cfg.Score.Model)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want :9000", cfg.Server.Addr)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiretidy.toml")
	if err := os.WriteFile(path, []byte("[params\nbroken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("invalid TOML should fail")
	}
}

func TestAPIKeyOrEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	sc := ScoreConfig{}
	if got := sc.APIKeyOrEnv(); got != "env-key" {
		t.Errorf("APIKeyOrEnv = %q, want env-key", got)
	}

	sc.APIKey = "config-key"
	if got := sc.APIKeyOrEnv(); got != "config-key" {
		t.Errorf("config key should win, got %q", got)
	}
}
