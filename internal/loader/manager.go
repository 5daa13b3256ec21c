package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	mderrors "mapdex/internal/errors"
	"mapdex/internal/format"
	"mapdex/internal/logging"
	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
	"mapdex/internal/source"
	"mapdex/internal/storage"
)

// Options configures a Manager.
type Options struct {
	Fetcher source.Fetcher
	// Cache and Negative may be nil to run without persistence.
	Cache    *storage.FileCache
	Negative *storage.NegativeCache
	// Catalog resolves aliases and default versions; optional.
	Catalog *namespace.Catalog
	Logger  *logging.Logger
	Enigma  format.EnigmaOptions
	Parser  source.VersionParser

	// MaxLoadedVersions bounds the containers kept in memory per namespace.
	MaxLoadedVersions int
	// ParallelLoads bounds concurrent loads in Warm.
	ParallelLoads int
}

// Manager owns the providers of every declared namespace and the containers
// loaded from them. Loads of the same (namespace, version) are deduplicated;
// loads in one namespace are serialized by a per-namespace lock held around
// the supply-or-fetch step.
type Manager struct {
	providers map[string]*SourceProvider
	order     []string
	catalog   *namespace.Catalog
	logger    *logging.Logger
	cache     *storage.FileCache
	negative  *storage.NegativeCache
	maxLoaded int
	parallel  int

	group singleflight.Group

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	loaded map[string]*loadedSet
}

// loadedSet keeps the most recently used containers of one namespace.
type loadedSet struct {
	versions []string // least recently used first
	byVer    map[string]*mappings.Mappings
}

// NewManager builds a provider for every namespace of manifest.
func NewManager(manifest *Manifest, opts Options) (*Manager, error) {
	if err := manifest.Validate(); err != nil {
		return nil, mderrors.New(mderrors.ConfigInvalid, "invalid source manifest", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = source.NewLocalFetcher("")
	}
	if opts.MaxLoadedVersions < 1 {
		opts.MaxLoadedVersions = 3
	}
	if opts.ParallelLoads < 1 {
		opts.ParallelLoads = 1
	}

	m := &Manager{
		providers: make(map[string]*SourceProvider, len(manifest.Namespaces)),
		catalog:   opts.Catalog,
		logger:    opts.Logger,
		cache:     opts.Cache,
		negative:  opts.Negative,
		maxLoaded: opts.MaxLoadedVersions,
		parallel:  opts.ParallelLoads,
		locks:     make(map[string]*sync.Mutex),
		loaded:    make(map[string]*loadedSet),
	}

	popts := ProviderOptions{
		Fetcher:  opts.Fetcher,
		Cache:    opts.Cache,
		Negative: opts.Negative,
		Logger:   opts.Logger,
		Enigma:   opts.Enigma,
		Parser:   opts.Parser,
	}
	for i := range manifest.Namespaces {
		decl := &manifest.Namespaces[i]
		m.providers[decl.ID] = NewSourceProvider(decl, popts)
		m.order = append(m.order, decl.ID)
	}
	for _, p := range m.providers {
		if p.decl.RewireFrom != "" {
			p.upstream = m.providers[p.decl.RewireFrom]
			p.rewire = m.Load
		}
	}
	return m, nil
}

// Namespaces lists the declared namespace ids, in catalog order when a
// catalog is set and declaration order otherwise.
func (m *Manager) Namespaces() []string {
	if m.catalog == nil {
		return append([]string(nil), m.order...)
	}
	var out []string
	seen := make(map[string]bool)
	for _, id := range m.catalog.Order() {
		if _, ok := m.providers[id]; ok {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range m.order {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// Resolve maps a namespace id or catalog alias to a declared id.
func (m *Manager) Resolve(ns string) (string, error) {
	if _, ok := m.providers[ns]; ok {
		return ns, nil
	}
	if m.catalog != nil {
		if d, ok := m.catalog.Get(ns); ok {
			if _, ok := m.providers[d.ID]; ok {
				return d.ID, nil
			}
		}
	}
	return "", mderrors.Newf(mderrors.NamespaceUnknown, "namespace %q is not declared", ns)
}

// Provider returns the provider of a namespace.
func (m *Manager) Provider(ns string) (*SourceProvider, error) {
	id, err := m.Resolve(ns)
	if err != nil {
		return nil, err
	}
	return m.providers[id], nil
}

// ResolveVersion returns version, or the namespace's default when empty: the
// catalog's default_version, else the provider's latest version.
func (m *Manager) ResolveVersion(ctx context.Context, ns, version string) (string, error) {
	if version != "" {
		return version, nil
	}
	p, err := m.Provider(ns)
	if err != nil {
		return "", err
	}
	if m.catalog != nil {
		if d, ok := m.catalog.Get(p.Namespace()); ok && d.DefaultVersion != "" {
			return d.DefaultVersion, nil
		}
	}
	return p.LatestVersion(ctx)
}

// Load returns the container of (ns, version), loading it if needed. An
// empty version resolves through ResolveVersion.
func (m *Manager) Load(ctx context.Context, ns, version string) (*mappings.Mappings, error) {
	p, err := m.Provider(ns)
	if err != nil {
		return nil, err
	}
	id := p.Namespace()
	if version, err = m.ResolveVersion(ctx, id, version); err != nil {
		return nil, err
	}
	if got := m.lookup(id, version); got != nil {
		return got, nil
	}
	if !p.IsApplicable(version) {
		return nil, mderrors.Newf(mderrors.VersionUnavailable, "namespace %s has no mappings for %s", id, version)
	}

	v, err, shared := m.group.Do(id+"@"+version, func() (interface{}, error) {
		lock := m.namespaceLock(id)
		lock.Lock()
		defer lock.Unlock()

		if got := m.lookup(id, version); got != nil {
			return got, nil
		}
		loaded, err := p.ApplyVersion(ctx, version)
		if err != nil {
			return nil, err
		}
		m.store(id, version, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("Joined in-flight load", map[string]interface{}{
			"namespace": id,
			"version":   version,
		})
	}
	return v.(*mappings.Mappings), nil
}

// Warm loads several versions of a namespace concurrently.
func (m *Manager) Warm(ctx context.Context, ns string, versions []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)
	for _, version := range versions {
		version := version
		g.Go(func() error {
			_, err := m.Load(ctx, ns, version)
			return err
		})
	}
	return g.Wait()
}

// Loaded lists the versions of ns held in memory, least recently used first.
func (m *Manager) Loaded(ns string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.loaded[ns]
	if set == nil {
		return nil
	}
	return append([]string(nil), set.versions...)
}

// Evict drops ns from memory and, when clearCache is set, from the binary
// and negative caches. It returns how many cache files were removed.
func (m *Manager) Evict(ns string, clearCache bool) (int, error) {
	id, err := m.Resolve(ns)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	delete(m.loaded, id)
	m.mu.Unlock()

	if !clearCache {
		return 0, nil
	}
	removed := 0
	if m.cache != nil {
		if removed, err = m.cache.Clear(id); err != nil {
			return 0, err
		}
	}
	if m.negative != nil {
		if err := m.negative.InvalidateNamespace(id); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (m *Manager) namespaceLock(ns string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		m.locks[ns] = l
	}
	return l
}

func (m *Manager) lookup(ns, version string) *mappings.Mappings {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.loaded[ns]
	if set == nil {
		return nil
	}
	got, ok := set.byVer[version]
	if !ok {
		return nil
	}
	set.touch(version)
	return got
}

func (m *Manager) store(ns, version string, loaded *mappings.Mappings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.loaded[ns]
	if set == nil {
		set = &loadedSet{byVer: make(map[string]*mappings.Mappings)}
		m.loaded[ns] = set
	}
	if _, ok := set.byVer[version]; !ok {
		set.versions = append(set.versions, version)
	}
	set.byVer[version] = loaded
	set.touch(version)

	for len(set.versions) > m.maxLoaded {
		oldest := set.versions[0]
		set.versions = set.versions[1:]
		delete(set.byVer, oldest)
		m.logger.Debug("Evicted loaded mappings", map[string]interface{}{
			"namespace": ns,
			"version":   oldest,
		})
	}
}

// touch moves version to the most recently used end.
func (s *loadedSet) touch(version string) {
	for i, v := range s.versions {
		if v == version {
			s.versions = append(append(s.versions[:i:i], s.versions[i+1:]...), version)
			return
		}
	}
}
