package namespace

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// CatalogFileName is the default filename for namespace declarations
const CatalogFileName = "NAMESPACES.toml"

// Declaration is one mapping provider declared in NAMESPACES.toml.
type Declaration struct {
	// ID is the stable namespace id ("yarn", "mojang", "mcp")
	ID string `toml:"id"`

	// Name is a display label
	Name string `toml:"name,omitempty"`

	// Order sorts namespaces for listing; lower first, ties by id
	Order int `toml:"order"`

	// Aliases resolve to ID on lookup
	Aliases []string `toml:"aliases,omitempty"`

	// Description is a one-line summary
	Description string `toml:"description,omitempty"`

	// DefaultVersion is used when a query does not name a version;
	// empty means the latest version the provider knows
	DefaultVersion string `toml:"default_version,omitempty"`
}

// CatalogFile is the root structure of NAMESPACES.toml
type CatalogFile struct {
	Version    int           `toml:"version"`
	Namespaces []Declaration `toml:"namespace"`
}

// Catalog is the registry of declared namespaces. It is owned by whoever
// loads it and passed explicitly; safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	byID    map[string]*Declaration
	aliases map[string]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:    make(map[string]*Declaration),
		aliases: make(map[string]string),
	}
}

// Register adds a declaration. IDs and aliases must be unique across the catalog.
func (c *Catalog) Register(d Declaration) error {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return fmt.Errorf("namespace declaration without id")
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[d.ID]; ok {
		return fmt.Errorf("namespace %q already registered", d.ID)
	}
	if owner, ok := c.aliases[d.ID]; ok {
		return fmt.Errorf("namespace id %q is already an alias of %q", d.ID, owner)
	}
	for _, a := range d.Aliases {
		if _, ok := c.byID[a]; ok {
			return fmt.Errorf("alias %q of %q collides with a namespace id", a, d.ID)
		}
		if owner, ok := c.aliases[a]; ok {
			return fmt.Errorf("alias %q of %q already used by %q", a, d.ID, owner)
		}
	}

	decl := d
	c.byID[d.ID] = &decl
	for _, a := range d.Aliases {
		c.aliases[a] = d.ID
	}
	return nil
}

// Get resolves an id or alias.
func (c *Catalog) Get(id string) (Declaration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if d, ok := c.byID[id]; ok {
		return *d, true
	}
	if target, ok := c.aliases[id]; ok {
		return *c.byID[target], true
	}
	return Declaration{}, false
}

// All returns declarations sorted by Order, then ID.
func (c *Catalog) All() []Declaration {
	c.mu.RLock()
	out := make([]Declaration, 0, len(c.byID))
	for _, d := range c.byID {
		out = append(out, *d)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Order returns the registered ids in listing order.
func (c *Catalog) Order() []string {
	all := c.All()
	ids := make([]string, len(all))
	for i, d := range all {
		ids[i] = d.ID
	}
	return ids
}

// Len returns the number of registered namespaces.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// ParseCatalog decodes NAMESPACES.toml content into a catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CatalogFileName, err)
	}
	if file.Version != 0 && file.Version != 1 {
		return nil, fmt.Errorf("unsupported %s version %d", CatalogFileName, file.Version)
	}

	c := NewCatalog()
	for _, d := range file.Namespaces {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadCatalog reads a NAMESPACES.toml file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", CatalogFileName, err)
	}
	return ParseCatalog(data)
}

// Marshal encodes the catalog back to TOML, sorted like All.
func (c *Catalog) Marshal() ([]byte, error) {
	return toml.Marshal(CatalogFile{Version: 1, Namespaces: c.All()})
}
