package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if !cfg.Cache.StringPool {
		t.Error("string pool should be enabled by default")
	}
	if cfg.Query.Accuracy != "exact" {
		t.Errorf("Query.Accuracy = %q, want %q", cfg.Query.Accuracy, "exact")
	}
	if cfg.Query.Limit <= 0 {
		t.Error("Query.Limit should be positive")
	}
	if cfg.Catalog.NamespacesFile != "NAMESPACES.toml" {
		t.Errorf("NamespacesFile = %q, want NAMESPACES.toml", cfg.Catalog.NamespacesFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, "", false},
		{"bad version", func(c *Config) { c.Version = 99 }, "version", true},
		{"cache without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir", true},
		{"cache disabled without dir", func(c *Config) { c.Cache.Enabled = false; c.Cache.Dir = "" }, "", false},
		{"negative limit", func(c *Config) { c.Query.Limit = -1 }, "query.limit", true},
		{"zero loaded versions", func(c *Config) { c.Loader.MaxLoadedVersions = 0 }, "loader.maxLoadedVersions", true},
		{"zero parallel loads", func(c *Config) { c.Loader.ParallelLoads = 0 }, "loader.parallelLoads", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				ce, ok := err.(*ConfigError)
				if !ok {
					t.Fatalf("error type = %T, want *ConfigError", err)
				}
				if ce.Field != tt.field {
					t.Errorf("Field = %q, want %q", ce.Field, tt.field)
				}
			}
		})
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Cache.Dir != ".mapdex/cache" {
		t.Errorf("Cache.Dir = %q, want default", cfg.Cache.Dir)
	}
	if cfg.Loader.ParallelLoads != 2 {
		t.Errorf("Loader.ParallelLoads = %d, want 2", cfg.Loader.ParallelLoads)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".mapdex"), 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"version": 1, "query": {"accuracy": "fuzzy"}, "enigma": {"ignoreErrors": true}}`
	if err := os.WriteFile(filepath.Join(root, ".mapdex", "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Query.Accuracy != "fuzzy" {
		t.Errorf("Query.Accuracy = %q, want fuzzy", cfg.Query.Accuracy)
	}
	if !cfg.Enigma.IgnoreErrors {
		t.Error("Enigma.IgnoreErrors should be read from file")
	}
	if cfg.Query.Limit != 20 {
		t.Errorf("Query.Limit = %d, want default 20", cfg.Query.Limit)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".mapdex"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".mapdex", "config.json"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(root); err == nil {
		t.Error("LoadConfig() should fail on invalid JSON")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Query.Limit = 7
	cfg.Cache.Compress = false

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Query.Limit != 7 {
		t.Errorf("Query.Limit = %d, want 7", loaded.Query.Limit)
	}
	if loaded.Cache.Compress {
		t.Error("Cache.Compress should round-trip as false")
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/ws", "cache"); got != filepath.Join("/ws", "cache") {
		t.Errorf("ResolvePath relative = %q", got)
	}
	if got := ResolvePath("/ws", "/abs/cache"); got != "/abs/cache" {
		t.Errorf("ResolvePath absolute = %q", got)
	}
	if got := ResolvePath("/ws", ""); got != "" {
		t.Errorf("ResolvePath empty = %q", got)
	}
}
