package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	mderrors "mapdex/internal/errors"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *QueryResponseCLI:
		return formatQueryHuman(v), nil
	case *NamespacesResponseCLI:
		return formatNamespacesHuman(v), nil
	case *CacheListResponseCLI:
		return formatCacheListHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatQueryHuman(resp *QueryResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s | %s %q (%d)\n", resp.Namespace, resp.Version, resp.Kind, resp.Query, len(resp.Results))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%2d. %s  [%.3f]\n", i+1, r.Display, r.Score)
		if r.Owner != "" {
			fmt.Fprintf(&b, "    owner:        %s\n", r.Owner)
		}
		fmt.Fprintf(&b, "    intermediary: %s\n", r.Intermediary)
		if r.Mapped != "" {
			fmt.Fprintf(&b, "    mapped:       %s\n", r.Mapped)
		}
		if len(r.Obf) > 0 {
			fmt.Fprintf(&b, "    obf:          %s\n", strings.Join(r.Obf, ", "))
		}
		if r.Descriptor != "" {
			fmt.Fprintf(&b, "    descriptor:   %s\n", r.Descriptor)
		}
		if r.MatchedOn != "" {
			fmt.Fprintf(&b, "    matched on:   %s\n", r.MatchedOn)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNamespacesHuman(resp *NamespacesResponseCLI) string {
	var b strings.Builder
	for _, ns := range resp.Namespaces {
		name := ns.ID
		if ns.Name != "" && ns.Name != ns.ID {
			name += " (" + ns.Name + ")"
		}
		fmt.Fprintf(&b, "%s\n", name)
		fmt.Fprintf(&b, "  format: %s\n", ns.Format)
		if len(ns.Aliases) > 0 {
			fmt.Fprintf(&b, "  aliases: %s\n", strings.Join(ns.Aliases, ", "))
		}
		if ns.RewireFrom != "" {
			fmt.Fprintf(&b, "  rewired from: %s\n", ns.RewireFrom)
		}
		if ns.DefaultVersion != "" {
			fmt.Fprintf(&b, "  default version: %s\n", ns.DefaultVersion)
		}
		if len(ns.Versions) > 0 {
			fmt.Fprintf(&b, "  versions: %s\n", strings.Join(ns.Versions, ", "))
		}
		if len(ns.Cached) > 0 {
			fmt.Fprintf(&b, "  cached: %s\n", strings.Join(ns.Cached, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCacheListHuman(resp *CacheListResponseCLI) string {
	if len(resp.Entries) == 0 {
		return "No cached mappings."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-12s %8s %10s  %s\n", "NAMESPACE", "VERSION", "CLASSES", "SIZE", "CREATED")
	for _, e := range resp.Entries {
		fmt.Fprintf(&b, "%-16s %-12s %8d %10s  %s\n",
			e.Namespace, e.Version, e.ClassCount, formatBytes(e.SizeBytes), e.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\n%d entries, %s total", len(resp.Entries), formatBytes(resp.TotalBytes))
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// suggestedFixes renders the fixes attached to a typed error.
func suggestedFixes(err error) []string {
	var me *mderrors.MapdexError
	if !errors.As(err, &me) {
		return nil
	}
	var out []string
	for _, fix := range me.SuggestedFixes {
		switch {
		case fix.Command != "":
			out = append(out, fix.Description+": `"+fix.Command+"`")
		case fix.File != "":
			out = append(out, fix.Description+" in "+fix.File)
		default:
			out = append(out, fix.Description)
		}
	}
	return out
}
