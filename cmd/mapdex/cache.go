package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mapdex/internal/storage"
)

var (
	cacheFormat string
	cacheAll    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the binary mappings cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list [namespace]",
	Short: "List cached mappings",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [namespace]",
	Short: "Remove cached mappings and remembered load failures",
	Long: `Remove the cache files of a namespace, or of every namespace with --all.

Examples:
  mapdex cache clear yarn
  mapdex cache clear --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runCacheClear,
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm <namespace> [version...]",
	Short: "Load versions ahead of time so later queries hit the cache",
	Long: `Load and cache versions of a namespace in parallel. Without versions the
namespace's default version is loaded.

Examples:
  mapdex cache warm yarn 1.19.4 1.20.1
  mapdex cache warm mojang`,
	Args: cobra.MinimumNArgs(1),
	Run:  runCacheWarm,
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheFormat, "format", "human", "Output format (json, human, yaml)")
	cacheClearCmd.Flags().BoolVar(&cacheAll, "all", false, "Clear every namespace")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}

// CacheListResponseCLI lists cache entries for CLI output
type CacheListResponseCLI struct {
	Dir        string                `json:"dir" yaml:"dir"`
	TotalBytes int64                 `json:"totalBytes" yaml:"totalBytes"`
	Entries    []storage.CacheRecord `json:"entries" yaml:"entries"`
}

func mustGetCache(app *App) *storage.FileCache {
	if app.Cache == nil {
		fmt.Fprintln(os.Stderr, "Error: the cache is disabled (cache.enabled = false)")
		os.Exit(1)
	}
	return app.Cache
}

func runCacheList(cmd *cobra.Command, args []string) {
	logger := newLogger(cacheFormat)
	app := mustGetApp(logger)
	defer app.Close()
	cache := mustGetCache(app)

	ns := ""
	if len(args) == 1 {
		id, err := app.Manager.Resolve(args[0])
		if err != nil {
			exitWithError("Error", err)
		}
		ns = id
	}
	records, err := cache.Index().List(ns)
	if err != nil {
		exitWithError("Error reading cache index", err)
	}

	resp := &CacheListResponseCLI{Dir: app.DB.Dir(), Entries: records}
	for _, rec := range records {
		resp.TotalBytes += rec.SizeBytes
	}

	output, err := FormatResponse(resp, OutputFormat(cacheFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	app := mustGetApp(logger)
	defer app.Close()
	mustGetCache(app)

	var targets []string
	switch {
	case cacheAll:
		targets = app.Manager.Namespaces()
	case len(args) == 1:
		targets = args
	default:
		fmt.Fprintln(os.Stderr, "Error: name a namespace or pass --all")
		os.Exit(1)
	}

	total := 0
	for _, ns := range targets {
		removed, err := app.Manager.Evict(ns, true)
		if err != nil {
			exitWithError("Error clearing cache", err)
		}
		total += removed
	}
	fmt.Printf("Removed %d cached mapping file(s)\n", total)
}

func runCacheWarm(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger("human")
	app := mustGetApp(logger)
	defer app.Close()
	ctx := newContext()

	ns := args[0]
	versions := args[1:]
	if len(versions) == 0 {
		v, err := app.Manager.ResolveVersion(ctx, ns, "")
		if err != nil {
			exitWithError("Error resolving default version", err)
		}
		versions = []string{v}
	}
	if err := app.Manager.Warm(ctx, ns, versions); err != nil {
		exitWithError("Error warming cache", err)
	}

	fmt.Printf("Warmed %d version(s) of %s in %s\n", len(versions), ns, time.Since(start).Round(time.Millisecond))
}
