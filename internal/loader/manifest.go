package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"mapdex/internal/format"
	"mapdex/internal/visitor"
)

// ManifestFileName is the default name of the source manifest.
const ManifestFileName = "sources.toml"

// VersionPlaceholder is replaced by the version in file patterns.
const VersionPlaceholder = "{version}"

// Manifest declares where each namespace's mappings come from.
type Manifest struct {
	Version    int               `toml:"version"`
	Namespaces []NamespaceSource `toml:"namespace"`
}

// NamespaceSource describes one namespace: the format of its files, how their
// columns map onto entry slots, and which files hold which version.
type NamespaceSource struct {
	ID   string `toml:"id"`
	Name string `toml:"name,omitempty"`
	// Format is a format name, or "auto" to detect it per file.
	Format string                  `toml:"format"`
	Config visitor.NamespaceConfig `toml:"config"`
	// Rename maps the ids a file declares onto the ids Config uses.
	Rename map[string]string `toml:"rename,omitempty"`

	// Pattern locates the file of any version, e.g. "yarn/{version}.tiny".
	Pattern string `toml:"pattern,omitempty"`
	// Metadata is a maven-metadata.xml listing the versions Pattern serves.
	Metadata string `toml:"metadata,omitempty"`
	// ArchiveEntry picks the member of a .zip or .jar file to parse; for
	// Enigma it is the directory prefix inside the archive.
	ArchiveEntry string `toml:"archive_entry,omitempty"`

	// RewireFrom names the namespace whose intermediary names replace this
	// namespace's keys after parsing.
	RewireFrom    string `toml:"rewire_from,omitempty"`
	RemoveUnfound bool   `toml:"remove_unfound,omitempty"`
	MapClassNames bool   `toml:"map_class_names,omitempty"`

	Sources []VersionSource `toml:"source,omitempty"`
}

// VersionSource lists the files of one version. Several files are layered in
// order; values from earlier files win.
type VersionSource struct {
	Version string   `toml:"version"`
	Files   []string `toml:"files"`
}

// FormatOf resolves the declared format; "auto" reports false.
func (n *NamespaceSource) FormatOf() (format.Format, bool, error) {
	if strings.EqualFold(n.Format, "auto") {
		return "", false, nil
	}
	f, err := format.ParseFormat(n.Format)
	if err != nil {
		return "", false, err
	}
	return f, true, nil
}

// Files returns the files declared for version, falling back to Pattern.
func (n *NamespaceSource) Files(version string) []string {
	for _, s := range n.Sources {
		if s.Version == version {
			return s.Files
		}
	}
	if n.Pattern != "" {
		return []string{strings.ReplaceAll(n.Pattern, VersionPlaceholder, version)}
	}
	return nil
}

// ExplicitVersions lists the versions with declared files.
func (n *NamespaceSource) ExplicitVersions() []string {
	out := make([]string, 0, len(n.Sources))
	for _, s := range n.Sources {
		out = append(out, s.Version)
	}
	return out
}

// ParseManifest decodes sources.toml content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFileName, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestFileName, err)
	}
	return ParseManifest(data)
}

// Save writes the manifest as TOML.
func (m *Manifest) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Get returns the namespace with the given id.
func (m *Manifest) Get(id string) (*NamespaceSource, bool) {
	for i := range m.Namespaces {
		if m.Namespaces[i].ID == id {
			return &m.Namespaces[i], true
		}
	}
	return nil, false
}

// IDs lists namespace ids in declaration order.
func (m *Manifest) IDs() []string {
	out := make([]string, len(m.Namespaces))
	for i, n := range m.Namespaces {
		out[i] = n.ID
	}
	return out
}

// Validate checks ids, formats, configs and rewire references. Rewire chains
// must not loop.
func (m *Manifest) Validate() error {
	if m.Version != 0 && m.Version != 1 {
		return fmt.Errorf("unsupported %s version %d", ManifestFileName, m.Version)
	}

	seen := make(map[string]bool, len(m.Namespaces))
	for _, n := range m.Namespaces {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("namespace source without id")
		}
		if seen[n.ID] {
			return fmt.Errorf("namespace %q declared twice", n.ID)
		}
		seen[n.ID] = true

		if _, _, err := n.FormatOf(); err != nil {
			return fmt.Errorf("namespace %q: %w", n.ID, err)
		}
		if n.Config.Intermediary == "" {
			return fmt.Errorf("namespace %q: config.intermediary is required", n.ID)
		}
		if n.Pattern == "" && len(n.Sources) == 0 {
			return fmt.Errorf("namespace %q: needs a pattern or at least one source", n.ID)
		}
		if n.Metadata != "" && n.Pattern == "" {
			return fmt.Errorf("namespace %q: metadata requires a pattern", n.ID)
		}
		versions := make(map[string]bool, len(n.Sources))
		for _, s := range n.Sources {
			if s.Version == "" || len(s.Files) == 0 {
				return fmt.Errorf("namespace %q: source needs a version and files", n.ID)
			}
			if versions[s.Version] {
				return fmt.Errorf("namespace %q: version %s declared twice", n.ID, s.Version)
			}
			versions[s.Version] = true
		}
	}

	for _, n := range m.Namespaces {
		visited := map[string]bool{n.ID: true}
		for cur := n; cur.RewireFrom != ""; {
			next, ok := m.Get(cur.RewireFrom)
			if !ok {
				return fmt.Errorf("namespace %q: rewire_from %q is not declared", cur.ID, cur.RewireFrom)
			}
			if visited[next.ID] {
				return fmt.Errorf("namespace %q: rewire chain loops through %q", n.ID, next.ID)
			}
			visited[next.ID] = true
			cur = *next
		}
	}
	return nil
}

// sortedRenames renders a rename map deterministically for hashing.
func sortedRenames(r map[string]string) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + "=" + r[k] + ";")
	}
	return b.String()
}
