// Package loader turns declared mapping sources into containers: it fetches
// the files of a version, parses and layers them, optionally rewires them onto
// another namespace, and keeps the binary cache and the in-memory set of
// loaded versions in step.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/codes"

	mderrors "mapdex/internal/errors"
	"mapdex/internal/format"
	"mapdex/internal/intern"
	"mapdex/internal/logging"
	"mapdex/internal/mappings"
	"mapdex/internal/source"
	"mapdex/internal/storage"
	"mapdex/internal/visitor"
)

// DefaultArchiveEntry is where Fabric-style jars keep their mappings.
const DefaultArchiveEntry = "mappings/mappings.tiny"

// Provider supplies the containers of one namespace.
type Provider interface {
	Namespace() string
	// IsApplicable reports whether the namespace has mappings for version.
	IsApplicable(version string) bool
	// IsCached reports whether a binary cache exists for version.
	IsCached(version string) bool
	// ApplyVersion returns the container for version, from cache or by parsing.
	ApplyVersion(ctx context.Context, version string) (*mappings.Mappings, error)
}

type dirWalker interface {
	ForEachFile(ctx context.Context, location string, fn func(rel string, data []byte) error) error
}

type existChecker interface {
	Exists(location string) bool
}

// RewireFunc loads the container a rewiring namespace joins against.
type RewireFunc func(ctx context.Context, namespace, version string) (*mappings.Mappings, error)

// input is one file handed to a parser.
type input struct {
	name string
	data []byte
}

// layer is everything one declared file contributes. Enigma layers hold one
// input per .mapping file.
type layer struct {
	file   string
	inputs []input
}

var errNoSource = errors.New("no source declared")

// SourceProvider implements Provider from a manifest entry.
type SourceProvider struct {
	decl     *NamespaceSource
	fetcher  source.Fetcher
	cache    *storage.FileCache
	negative *storage.NegativeCache
	logger   *logging.Logger
	enigma   format.EnigmaOptions
	parser   source.VersionParser

	// set by the manager when decl.RewireFrom is non-empty
	rewire   RewireFunc
	upstream *SourceProvider

	metaMu       sync.Mutex
	metaLoaded   bool
	metaVersions []string
	metaRelease  string
}

// ProviderOptions wires a SourceProvider to its collaborators. Cache and
// Negative may be nil.
type ProviderOptions struct {
	Fetcher  source.Fetcher
	Cache    *storage.FileCache
	Negative *storage.NegativeCache
	Logger   *logging.Logger
	Enigma   format.EnigmaOptions
	Parser   source.VersionParser
}

// NewSourceProvider returns a provider for decl.
func NewSourceProvider(decl *NamespaceSource, opts ProviderOptions) *SourceProvider {
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	if opts.Parser == nil {
		opts.Parser = source.SemverParser{}
	}
	if opts.Enigma.Logger == nil {
		opts.Enigma.Logger = opts.Logger
	}
	return &SourceProvider{
		decl:     decl,
		fetcher:  opts.Fetcher,
		cache:    opts.Cache,
		negative: opts.Negative,
		logger:   opts.Logger.With(map[string]interface{}{"namespace": decl.ID}),
		enigma:   opts.Enigma,
		parser:   opts.Parser,
	}
}

// Namespace implements Provider.
func (p *SourceProvider) Namespace() string { return p.decl.ID }

// Declaration returns the manifest entry behind the provider.
func (p *SourceProvider) Declaration() *NamespaceSource { return p.decl }

// IsApplicable implements Provider. Pattern-only namespaces consult their
// maven metadata, or check that the file exists.
func (p *SourceProvider) IsApplicable(version string) bool {
	for _, s := range p.decl.Sources {
		if s.Version == version {
			return true
		}
	}
	if p.decl.Pattern == "" {
		return false
	}
	if p.decl.Metadata != "" {
		versions, _, err := p.mavenVersions(context.Background())
		if err != nil {
			return false
		}
		for _, v := range versions {
			if v == version {
				return true
			}
		}
		return false
	}
	if ec, ok := p.fetcher.(existChecker); ok {
		return ec.Exists(p.decl.Files(version)[0])
	}
	return true
}

// IsCached implements Provider.
func (p *SourceProvider) IsCached(version string) bool {
	if p.cache == nil {
		return false
	}
	rec, err := p.cache.Lookup(p.decl.ID, version, "")
	return err == nil && rec != nil
}

// Versions lists the known versions, newest first.
func (p *SourceProvider) Versions(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range p.decl.ExplicitVersions() {
		add(v)
	}
	if p.decl.Metadata != "" {
		versions, _, err := p.mavenVersions(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			add(v)
		}
	}
	return source.SortNewestFirst(p.parser, out), nil
}

// LatestVersion picks the newest comparable version, then the maven release,
// then the first declared version.
func (p *SourceProvider) LatestVersion(ctx context.Context) (string, error) {
	versions, err := p.Versions(ctx)
	if err != nil {
		return "", err
	}
	if v, ok := source.Latest(p.parser, versions); ok {
		return v, nil
	}
	if p.decl.Metadata != "" {
		if _, release, err := p.mavenVersions(ctx); err == nil && release != "" {
			return release, nil
		}
	}
	if len(versions) > 0 {
		return versions[0], nil
	}
	return "", mderrors.Newf(mderrors.VersionUnavailable, "namespace %s declares no versions", p.decl.ID)
}

func (p *SourceProvider) mavenVersions(ctx context.Context) ([]string, string, error) {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	if p.metaLoaded {
		return p.metaVersions, p.metaRelease, nil
	}
	data, err := p.fetcher.Fetch(ctx, p.decl.Metadata)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", p.decl.Metadata, err)
	}
	versions, release, err := source.MavenVersions(data)
	if err != nil {
		return nil, "", err
	}
	p.metaVersions, p.metaRelease, p.metaLoaded = versions, release, true
	return versions, release, nil
}

// ApplyVersion implements Provider. A recent failure recorded in the negative
// cache is returned without retrying. A cache file that fails to decode is
// deleted and the version is parsed again.
func (p *SourceProvider) ApplyVersion(ctx context.Context, version string) (*mappings.Mappings, error) {
	ctx, span := startLoadSpan(ctx, p.decl.ID, version)
	defer span.End()
	start := time.Now()

	if p.negative != nil {
		if failed, err := p.negative.Check(p.decl.ID, version); err == nil && failed != nil {
			span.SetStatus(codes.Error, "negative cache hit")
			return nil, mderrors.New(codeFor(failed.ErrorType),
				fmt.Sprintf("%s %s failed recently: %s", p.decl.ID, version, failed.ErrorMessage), nil)
		}
	}

	m, err := p.apply(ctx, version)
	recordLoad(ctx, p.decl.ID, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	return m, nil
}

func (p *SourceProvider) apply(ctx context.Context, version string) (*mappings.Mappings, error) {
	layers, hash, err := p.collect(ctx, version)
	if err != nil {
		return nil, p.fail(version, err)
	}
	cacheID := storage.CacheKey(p.decl.ID, version, hash)

	if p.cache != nil {
		if m := p.readCache(ctx, version, cacheID); m != nil {
			return m, nil
		}
	}

	m, err := p.parse(version, layers)
	if err != nil {
		return nil, p.fail(version, err)
	}

	if p.decl.RewireFrom != "" {
		if p.rewire == nil {
			return nil, fmt.Errorf("namespace %s rewires from %s but has no rewire source", p.decl.ID, p.decl.RewireFrom)
		}
		src, err := p.rewire(ctx, p.decl.RewireFrom, version)
		if err != nil {
			return nil, p.fail(version, &rewireError{from: p.decl.RewireFrom, err: err})
		}
		mappings.RewireIntermediaryFrom(m, src, p.decl.RemoveUnfound, p.decl.MapClassNames)
	}

	if p.cache != nil {
		if _, err := p.cache.Write(cacheID, m); err != nil {
			p.logger.Warn("Failed to write mappings cache", map[string]interface{}{
				"version": version,
				"error":   err.Error(),
			})
		}
	}
	if p.negative != nil {
		p.negative.Invalidate(p.decl.ID, version)
	}

	classes, methods, fields := m.Counts()
	p.logger.Info("Loaded mappings", map[string]interface{}{
		"version": version,
		"classes": classes,
		"methods": methods,
		"fields":  fields,
	})
	return m, nil
}

func (p *SourceProvider) readCache(ctx context.Context, version, cacheID string) *mappings.Mappings {
	rec, err := p.cache.Lookup(p.decl.ID, version, cacheID)
	if err != nil {
		p.logger.Warn("Cache index lookup failed", map[string]interface{}{
			"version": version,
			"error":   err.Error(),
		})
		return nil
	}
	if rec == nil {
		recordCache(ctx, p.decl.ID, "miss")
		p.logger.Debug("Mappings cache miss", map[string]interface{}{"version": version})
		return nil
	}

	m, err := p.cache.Read(rec)
	if err != nil {
		recordCache(ctx, p.decl.ID, "corrupt")
		p.logger.Warn("Discarding unreadable mappings cache", map[string]interface{}{
			"version": version,
			"path":    rec.Path,
			"error":   err.Error(),
		})
		if rmErr := p.cache.Remove(rec); rmErr != nil {
			p.logger.Warn("Failed to remove mappings cache", map[string]interface{}{
				"path":  rec.Path,
				"error": rmErr.Error(),
			})
		}
		return nil
	}

	recordCache(ctx, p.decl.ID, "hit")
	p.logger.Debug("Mappings cache hit", map[string]interface{}{"version": version})
	return m
}

// collect fetches every layer of version and fingerprints them together with
// everything else that shapes the parsed container.
func (p *SourceProvider) collect(ctx context.Context, version string) ([]layer, uint64, error) {
	files := p.decl.Files(version)
	if len(files) == 0 {
		return nil, 0, errNoSource
	}

	f, known, _ := p.decl.FormatOf()
	h := xxh3.New()
	fmt.Fprintf(h, "%s\x00%s\x00%+v\x00%s\x00", p.decl.ID, p.decl.Format, p.decl.Config, sortedRenames(p.decl.Rename))

	layers := make([]layer, 0, len(files))
	for _, file := range files {
		var l layer
		var err error
		if known && f == format.Enigma {
			l, err = p.fetchEnigma(ctx, file)
		} else {
			l, err = p.fetchFile(ctx, file)
		}
		if err != nil {
			return nil, 0, err
		}
		for _, in := range l.inputs {
			h.WriteString(in.name)
			h.Write([]byte{0})
			h.Write(in.data)
		}
		layers = append(layers, l)
	}

	if p.upstream != nil {
		_, upstream, err := p.upstream.collect(ctx, version)
		if err != nil {
			return nil, 0, &rewireError{from: p.decl.RewireFrom, err: err}
		}
		fmt.Fprintf(h, "\x00rewire\x00%s\x00%x\x00%t\x00%t", p.decl.RewireFrom, upstream, p.decl.RemoveUnfound, p.decl.MapClassNames)
	}
	return layers, h.Sum64(), nil
}

func isArchive(file string) bool {
	lower := strings.ToLower(file)
	return strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".jar")
}

func (p *SourceProvider) fetchFile(ctx context.Context, file string) (layer, error) {
	data, err := p.fetcher.Fetch(ctx, file)
	if err != nil {
		return layer{}, err
	}
	if isArchive(file) {
		entry := p.decl.ArchiveEntry
		if entry == "" {
			entry = DefaultArchiveEntry
		}
		if data, err = source.ReadEntry(data, entry); err != nil {
			return layer{}, fmt.Errorf("%s: %w", file, err)
		}
		return layer{file: file, inputs: []input{{name: file + "!" + entry, data: data}}}, nil
	}
	return layer{file: file, inputs: []input{{name: file, data: data}}}, nil
}

// fetchEnigma reads a single .mapping file, every .mapping file under a
// prefix of an archive, or every .mapping file of a directory.
func (p *SourceProvider) fetchEnigma(ctx context.Context, file string) (layer, error) {
	l := layer{file: file}
	collect := func(rel string, data []byte) error {
		if strings.HasSuffix(rel, ".mapping") {
			l.inputs = append(l.inputs, input{name: rel, data: data})
		}
		return nil
	}

	switch {
	case strings.HasSuffix(file, ".mapping"):
		data, err := p.fetcher.Fetch(ctx, file)
		if err != nil {
			return layer{}, err
		}
		l.inputs = append(l.inputs, input{name: file, data: data})
	case isArchive(file):
		data, err := p.fetcher.Fetch(ctx, file)
		if err != nil {
			return layer{}, err
		}
		prefix := strings.TrimSuffix(p.decl.ArchiveEntry, "/")
		if prefix != "" {
			prefix += "/"
		}
		err = source.ForEachEntry(data, func(path string, data []byte) error {
			if !strings.HasPrefix(path, prefix) {
				return nil
			}
			return collect(strings.TrimPrefix(path, prefix), data)
		})
		if err != nil {
			return layer{}, fmt.Errorf("%s: %w", file, err)
		}
	default:
		walker, ok := p.fetcher.(dirWalker)
		if !ok {
			return layer{}, fmt.Errorf("%s: fetcher cannot list directories", file)
		}
		if err := walker.ForEachFile(ctx, file, collect); err != nil {
			return layer{}, err
		}
	}

	if len(l.inputs) == 0 {
		return layer{}, fmt.Errorf("%s: no .mapping files", file)
	}
	return l, nil
}

// parse layers every input onto one container. Each layer gets a fresh
// builder visitor over the same builder, so earlier layers win.
func (p *SourceProvider) parse(version string, layers []layer) (*mappings.Mappings, error) {
	fixed, known, _ := p.decl.FormatOf()
	name := p.decl.Name
	if name == "" {
		name = p.decl.ID
	}

	m := mappings.New(version, name, "", p.decl.ID)
	b := mappings.NewBuilder(m, intern.New())
	opts := format.Options{Enigma: p.enigma}

	for _, l := range layers {
		var v visitor.MappingsVisitor = visitor.NewBuilderVisitor(b, p.decl.Config)
		if len(p.decl.Rename) > 0 {
			v = visitor.Rename(v, p.decl.Rename)
		}

		if known && fixed == format.Enigma {
			ep := format.NewEnigmaParser(p.enigma)
			for _, in := range l.inputs {
				if err := ep.AddFile(in.name, bytes.NewReader(in.data)); err != nil {
					return nil, &parseError{file: in.name, err: err}
				}
			}
			if err := ep.Parse(v); err != nil {
				return nil, &parseError{file: l.file, err: err}
			}
			if m.Source == "" {
				m.Source = format.Enigma.Source()
			}
			continue
		}

		for _, in := range l.inputs {
			br := bufio.NewReader(bytes.NewReader(in.data))
			f := fixed
			if !known {
				detected, err := format.DetectReader(br)
				if err != nil {
					return nil, &parseError{file: in.name, err: err}
				}
				f = detected
			}
			if err := format.Parse(f, br, v, opts); err != nil {
				return nil, &parseError{file: in.name, err: err}
			}
			if m.Source == "" {
				m.Source = f.Source()
			}
		}
	}
	return b.Build(), nil
}

type parseError struct {
	file string
	err  error
}

func (e *parseError) Error() string { return e.file + ": " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

type rewireError struct {
	from string
	err  error
}

func (e *rewireError) Error() string { return "rewire from " + e.from + ": " + e.err.Error() }
func (e *rewireError) Unwrap() error { return e.err }

// fail classifies err, remembers it in the negative cache and wraps it.
func (p *SourceProvider) fail(version string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var (
		kind storage.NegativeCacheErrorType
		code mderrors.ErrorCode
		msg  string
		pe   *parseError
		re   *rewireError
	)
	switch {
	case errors.As(err, &re):
		kind, code = storage.RewireFailure, mderrors.VersionUnavailable
		msg = fmt.Sprintf("%s %s could not be rewired from %s", p.decl.ID, version, re.from)
	case errors.Is(err, errNoSource):
		kind, code = storage.SourceMissing, mderrors.VersionUnavailable
		msg = fmt.Sprintf("%s has no mappings for %s", p.decl.ID, version)
	case errors.Is(err, os.ErrNotExist):
		kind, code = storage.SourceMissing, mderrors.VersionUnavailable
		msg = fmt.Sprintf("mapping file of %s %s is missing", p.decl.ID, version)
	case errors.As(err, &pe):
		kind, code = storage.ParseFailure, mderrors.ParseFailed
		msg = fmt.Sprintf("failed to parse %s %s", p.decl.ID, version)
	default:
		kind, code = storage.IOFailure, mderrors.InternalError
		msg = fmt.Sprintf("failed to load %s %s", p.decl.ID, version)
	}

	if p.negative != nil {
		if nerr := p.negative.Record(p.decl.ID, version, kind, err.Error()); nerr != nil {
			p.logger.Debug("Failed to record failed load", map[string]interface{}{"error": nerr.Error()})
		}
	}
	p.logger.Warn(msg, map[string]interface{}{"version": version, "error": err.Error()})
	return mderrors.New(code, msg, err)
}

func codeFor(t storage.NegativeCacheErrorType) mderrors.ErrorCode {
	switch t {
	case storage.ParseFailure:
		return mderrors.ParseFailed
	case storage.SourceMissing, storage.RewireFailure:
		return mderrors.VersionUnavailable
	}
	return mderrors.InternalError
}
