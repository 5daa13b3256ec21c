package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"

	"mapdex/internal/config"
	"mapdex/internal/logging"
	"mapdex/internal/storage"
	"mapdex/internal/version"
)

var (
	diagOut       string
	diagAnonymize bool
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Create diagnostic bundle",
	Long: `Create a diagnostic bundle for troubleshooting mapdex issues.

The bundle includes:
  - Configuration
  - Declared namespaces
  - The cache index
  - Remembered load failures
  - System information

Excludes:
  - Mapping files and cache contents

Example:
  mapdex diag --out mapdex-diagnostic.zip
  mapdex diag --out mapdex-diagnostic.zip --anonymize`,
	Run: runDiag,
}

func init() {
	diagCmd.Flags().StringVar(&diagOut, "out", "mapdex-diagnostic.zip", "Output file path")
	diagCmd.Flags().BoolVar(&diagAnonymize, "anonymize", false, "Hide paths")
	rootCmd.AddCommand(diagCmd)
}

// DiagnosticBundle contains all diagnostic information
type DiagnosticBundle struct {
	GeneratedAt   string                `json:"generatedAt"`
	MapdexVersion string                `json:"mapdexVersion"`
	System        DiagSystemInfo        `json:"system"`
	Config        *config.Config        `json:"config,omitempty"`
	Namespaces    []string              `json:"namespaces,omitempty"`
	Cache         []storage.CacheRecord `json:"cache,omitempty"`
	FailedLoads   []storage.FailedLoad  `json:"failedLoads,omitempty"`
	Anonymized    bool                  `json:"anonymized"`
}

// DiagSystemInfo contains system information
type DiagSystemInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	GoVersion    string `json:"goVersion"`
	WorkingDir   string `json:"workingDir"`
}

func runDiag(cmd *cobra.Command, args []string) {
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
	})

	fmt.Println("Creating diagnostic bundle...")

	root, err := resolveRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bundle := collectDiagnostics(root, logger)

	if err := createDiagnosticZip(bundle, diagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating diagnostic bundle: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Diagnostic bundle created: %s\n", diagOut)
	fmt.Println("\nReview the contents before sharing.")
}

// collectDiagnostics gathers all diagnostic information
func collectDiagnostics(root string, logger *logging.Logger) *DiagnosticBundle {
	bundle := &DiagnosticBundle{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		MapdexVersion: version.Version,
		Anonymized:    diagAnonymize,
	}

	workingDir := root
	if diagAnonymize {
		workingDir = "<anonymized>"
	}
	bundle.System = DiagSystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		WorkingDir:   workingDir,
	}

	if cfg, err := config.LoadConfig(root); err == nil {
		bundle.Config = sanitizeConfig(cfg)
	}

	app, err := getApp(root, logger)
	if err != nil {
		logger.Warn("Failed to initialize mapdex", map[string]interface{}{
			"error": err.Error(),
		})
		return bundle
	}
	defer app.Close()

	bundle.Namespaces = app.Manager.Namespaces()
	if app.DB == nil {
		return bundle
	}
	if records, err := app.Cache.Index().List(""); err == nil {
		for i := range records {
			if diagAnonymize {
				records[i].Path = "<anonymized>"
			}
		}
		bundle.Cache = records
	}
	if failed, err := storage.NewNegativeCache(app.DB).List(); err == nil {
		bundle.FailedLoads = failed
	}
	return bundle
}

// sanitizeConfig hides paths when anonymizing
func sanitizeConfig(cfg *config.Config) *config.Config {
	sanitized := *cfg
	if diagAnonymize {
		sanitized.Cache.Dir = "<anonymized>"
		sanitized.Catalog.NamespacesFile = "<anonymized>"
		sanitized.Catalog.SourcesFile = "<anonymized>"
	}
	return &sanitized
}

// createDiagnosticZip creates a zip file with diagnostic information
func createDiagnosticZip(bundle *DiagnosticBundle, outPath string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	zipWriter := zip.NewWriter(outFile)
	defer func() { _ = zipWriter.Close() }()

	bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	if err := addFileToZip(zipWriter, "bundle.json", bundleJSON); err != nil {
		return err
	}

	readme := []byte(`mapdex Diagnostic Bundle
========================

Contents:
- bundle.json: Complete diagnostic information
  - System information
  - Configuration
  - Declared namespaces
  - Cache index and remembered load failures

Generated: ` + bundle.GeneratedAt + `
mapdex Version: ` + bundle.MapdexVersion + `
Anonymized: ` + fmt.Sprintf("%v", bundle.Anonymized) + `
`)
	if err := addFileToZip(zipWriter, "README.txt", readme); err != nil {
		return err
	}

	if len(bundle.Cache) > 0 {
		cacheJSON, _ := json.MarshalIndent(bundle.Cache, "", "  ")
		if err := addFileToZip(zipWriter, "cache.json", cacheJSON); err != nil {
			return err
		}
	}
	return nil
}

// addFileToZip adds a file to the zip archive
func addFileToZip(zipWriter *zip.Writer, filename string, content []byte) error {
	writer, err := zipWriter.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", filename, err)
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("failed to write %s to zip: %w", filename, err)
	}
	return nil
}
