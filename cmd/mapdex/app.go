package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"mapdex/internal/config"
	"mapdex/internal/format"
	"mapdex/internal/loader"
	"mapdex/internal/logging"
	"mapdex/internal/namespace"
	"mapdex/internal/source"
	"mapdex/internal/storage"
)

// App bundles what the commands share: config, catalog, cache and loader.
type App struct {
	Root     string
	Config   *config.Config
	Catalog  *namespace.Catalog
	Manifest *loader.Manifest
	Manager  *loader.Manager
	DB       *storage.DB
	Cache    *storage.FileCache
	Logger   *logging.Logger
}

var (
	appOnce   sync.Once
	sharedApp *App
	appErr    error
)

// getApp returns the shared App, built on first use.
func getApp(root string, logger *logging.Logger) (*App, error) {
	appOnce.Do(func() {
		sharedApp, appErr = newApp(root, logger)
	})
	return sharedApp, appErr
}

func newApp(root string, logger *logging.Logger) (*App, error) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Root: root, Config: cfg, Logger: logger}

	catalogPath := config.ResolvePath(root, cfg.Catalog.NamespacesFile)
	if _, err := os.Stat(catalogPath); err == nil {
		if app.Catalog, err = namespace.LoadCatalog(catalogPath); err != nil {
			return nil, err
		}
	}

	manifestPath := config.ResolvePath(root, cfg.Catalog.SourcesFile)
	if app.Manifest, err = loader.LoadManifest(manifestPath); err != nil {
		return nil, fmt.Errorf("failed to load source manifest: %w", err)
	}

	var negative *storage.NegativeCache
	if cfg.Cache.Enabled {
		app.DB, err = storage.Open(config.ResolvePath(root, cfg.Cache.Dir), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		app.Cache = storage.NewFileCache(app.DB, storage.FileCacheOptions{
			Compress:   cfg.Cache.Compress,
			StringPool: cfg.Cache.StringPool,
		})
		negative = storage.NewNegativeCache(app.DB)
		if err := negative.CleanupExpired(); err != nil {
			logger.Warn("Failed to clean expired load failures", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	app.Manager, err = loader.NewManager(app.Manifest, loader.Options{
		Fetcher:  source.NewLocalFetcher(root),
		Cache:    app.Cache,
		Negative: negative,
		Catalog:  app.Catalog,
		Logger:   logger,
		Enigma: format.EnigmaOptions{
			ShowErrors:   cfg.Enigma.ShowErrors,
			IgnoreErrors: cfg.Enigma.IgnoreErrors,
		},
		MaxLoadedVersions: cfg.Loader.MaxLoadedVersions,
		ParallelLoads:     cfg.Loader.ParallelLoads,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases the cache database.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// mustGetApp returns the shared App or exits on error.
func mustGetApp(logger *logging.Logger) *App {
	root, err := resolveRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	app, err := getApp(root, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing mapdex: %v\n", err)
		os.Exit(1)
	}
	return app
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified output format. The level
// comes from --log-level, else the workspace config, else warn.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.WarnLevel
	if logLevelFlag != "" {
		level = logging.ParseLevel(logLevelFlag)
	} else if root, err := resolveRoot(); err == nil {
		if cfg, err := config.LoadConfig(root); err == nil {
			level = logging.ParseLevel(cfg.Logging.Level)
		}
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}

// exitWithError prints err and exits, adding suggested fixes for typed errors.
func exitWithError(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	for _, fix := range suggestedFixes(err) {
		fmt.Fprintf(os.Stderr, "  hint: %s\n", fix)
	}
	os.Exit(1)
}
