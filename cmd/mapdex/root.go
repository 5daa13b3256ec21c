package main

import (
	"os"

	"github.com/spf13/cobra"

	"mapdex/internal/version"
)

var (
	// rootFlag is the workspace holding .mapdex/, the catalog and the manifest
	rootFlag string
	// logLevelFlag overrides logging.level from the config
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "mapdex",
	Short: "mapdex - Minecraft mappings index",
	Long: `mapdex loads Minecraft name mappings (Proguard, SRG, TSRG, TSRG2, Tiny v1/v2,
Enigma) for many namespaces and game versions, caches them in a compact binary
form, and answers fuzzy lookups for classes, fields and methods.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("mapdex version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Workspace root (default: current directory, or MAPDEX_ROOT)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
}

// resolveRoot determines the workspace root.
// Precedence: --root flag > MAPDEX_ROOT env var > current directory
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	if env := os.Getenv("MAPDEX_ROOT"); env != "" {
		return env, nil
	}
	return os.Getwd()
}
