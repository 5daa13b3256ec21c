package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	namespacesFormat   string
	namespacesVersions bool
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List declared mapping namespaces",
	Long: `List the namespaces declared in the source manifest, ordered by the catalog.

Examples:
  mapdex namespaces
  mapdex namespaces --versions --format json`,
	Args: cobra.NoArgs,
	Run:  runNamespaces,
}

func init() {
	namespacesCmd.Flags().StringVar(&namespacesFormat, "format", "human", "Output format (json, human, yaml)")
	namespacesCmd.Flags().BoolVar(&namespacesVersions, "versions", false, "Also list available versions")
	rootCmd.AddCommand(namespacesCmd)
}

// NamespacesResponseCLI lists namespaces for CLI output
type NamespacesResponseCLI struct {
	Namespaces []NamespaceCLI `json:"namespaces" yaml:"namespaces"`
}

// NamespaceCLI describes one namespace
type NamespaceCLI struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Format         string   `json:"format" yaml:"format"`
	Aliases        []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	RewireFrom     string   `json:"rewireFrom,omitempty" yaml:"rewireFrom,omitempty"`
	DefaultVersion string   `json:"defaultVersion,omitempty" yaml:"defaultVersion,omitempty"`
	Versions       []string `json:"versions,omitempty" yaml:"versions,omitempty"`
	Cached         []string `json:"cached,omitempty" yaml:"cached,omitempty"`
}

func runNamespaces(cmd *cobra.Command, args []string) {
	logger := newLogger(namespacesFormat)
	app := mustGetApp(logger)
	defer app.Close()
	ctx := newContext()

	resp := &NamespacesResponseCLI{}
	for _, id := range app.Manager.Namespaces() {
		p, err := app.Manager.Provider(id)
		if err != nil {
			exitWithError("Error", err)
		}
		decl := p.Declaration()
		ns := NamespaceCLI{
			ID:         id,
			Name:       decl.Name,
			Format:     decl.Format,
			RewireFrom: decl.RewireFrom,
		}
		if app.Catalog != nil {
			if d, ok := app.Catalog.Get(id); ok {
				if ns.Name == "" {
					ns.Name = d.Name
				}
				ns.Aliases = d.Aliases
				ns.DefaultVersion = d.DefaultVersion
			}
		}
		if namespacesVersions {
			versions, err := p.Versions(ctx)
			if err != nil {
				logger.Warn("Failed to list versions", map[string]interface{}{
					"namespace": id,
					"error":     err.Error(),
				})
			}
			ns.Versions = versions
		}
		if app.Cache != nil {
			records, err := app.Cache.Index().List(id)
			if err != nil {
				exitWithError("Error reading cache index", err)
			}
			for _, rec := range records {
				ns.Cached = append(ns.Cached, rec.Version)
			}
		}
		resp.Namespaces = append(resp.Namespaces, ns)
	}

	output, err := FormatResponse(resp, OutputFormat(namespacesFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
