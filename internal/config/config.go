package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete mapdex configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`
	Query   QueryConfig   `json:"query" mapstructure:"query"`
	Loader  LoaderConfig  `json:"loader" mapstructure:"loader"`
	Enigma  EnigmaConfig  `json:"enigma" mapstructure:"enigma"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// CacheConfig controls the binary mappings cache
type CacheConfig struct {
	// Dir is relative to the workspace root unless absolute
	Dir        string `json:"dir" mapstructure:"dir"`
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
	StringPool bool   `json:"stringPool" mapstructure:"stringPool"`
}

// CatalogConfig points at the namespace and source declarations
type CatalogConfig struct {
	NamespacesFile string `json:"namespacesFile" mapstructure:"namespacesFile"`
	SourcesFile    string `json:"sourcesFile" mapstructure:"sourcesFile"`
}

// QueryConfig contains query defaults
type QueryConfig struct {
	// Accuracy is "exact", "fuzzy" or a number in (0,1]
	Accuracy string `json:"accuracy" mapstructure:"accuracy"`
	Limit    int    `json:"limit" mapstructure:"limit"`
}

// LoaderConfig contains mapping loader settings
type LoaderConfig struct {
	MaxLoadedVersions int `json:"maxLoadedVersions" mapstructure:"maxLoadedVersions"`
	ParallelLoads     int `json:"parallelLoads" mapstructure:"parallelLoads"`
}

// EnigmaConfig controls best-effort handling of stale Enigma files
type EnigmaConfig struct {
	ShowErrors   bool `json:"showErrors" mapstructure:"showErrors"`
	IgnoreErrors bool `json:"ignoreErrors" mapstructure:"ignoreErrors"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Cache: CacheConfig{
			Dir:        ".mapdex/cache",
			Enabled:    true,
			Compress:   true,
			StringPool: true,
		},
		Catalog: CatalogConfig{
			NamespacesFile: "NAMESPACES.toml",
			SourcesFile:    "sources.toml",
		},
		Query: QueryConfig{
			Accuracy: "exact",
			Limit:    20,
		},
		Loader: LoaderConfig{
			MaxLoadedVersions: 3,
			ParallelLoads:     2,
		},
		Enigma: EnigmaConfig{
			ShowErrors:   true,
			IgnoreErrors: false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadConfig loads configuration from .mapdex/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	// Defaults mirror DefaultConfig so partial files keep sane values
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.compress", def.Cache.Compress)
	v.SetDefault("cache.stringPool", def.Cache.StringPool)
	v.SetDefault("catalog.namespacesFile", def.Catalog.NamespacesFile)
	v.SetDefault("catalog.sourcesFile", def.Catalog.SourcesFile)
	v.SetDefault("query.accuracy", def.Query.Accuracy)
	v.SetDefault("query.limit", def.Query.Limit)
	v.SetDefault("loader.maxLoadedVersions", def.Loader.MaxLoadedVersions)
	v.SetDefault("loader.parallelLoads", def.Loader.ParallelLoads)
	v.SetDefault("enigma.showErrors", def.Enigma.ShowErrors)
	v.SetDefault("enigma.ignoreErrors", def.Enigma.IgnoreErrors)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".mapdex"))

	v.SetEnvPrefix("MAPDEX")
	v.BindEnv("logging.level", "MAPDEX_LOG_LEVEL")
	v.BindEnv("cache.dir", "MAPDEX_CACHE_DIR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .mapdex/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".mapdex")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return &ConfigError{Field: "cache.dir", Message: "must be set when the cache is enabled"}
	}
	if c.Query.Limit < 0 {
		return &ConfigError{Field: "query.limit", Message: "must not be negative"}
	}
	if c.Loader.MaxLoadedVersions < 1 {
		return &ConfigError{Field: "loader.maxLoadedVersions", Message: "must be at least 1"}
	}
	if c.Loader.ParallelLoads < 1 {
		return &ConfigError{Field: "loader.parallelLoads", Message: "must be at least 1"}
	}
	return nil
}

// ResolvePath makes p absolute against root unless it already is.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
