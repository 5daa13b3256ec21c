package visitor

import (
	"fmt"

	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
)

// NamespaceConfig says which stream namespace feeds each slot of an entry.
// Empty ids leave the slot untouched. Intermediary is required.
type NamespaceConfig struct {
	ObfClient    string `toml:"obf_client,omitempty" json:"obfClient,omitempty"`
	ObfServer    string `toml:"obf_server,omitempty" json:"obfServer,omitempty"`
	ObfMerged    string `toml:"obf_merged,omitempty" json:"obfMerged,omitempty"`
	Intermediary string `toml:"intermediary" json:"intermediary"`
	Named        string `toml:"named,omitempty" json:"named,omitempty"`
}

// Validate checks the config against the namespaces a stream declares.
func (c NamespaceConfig) Validate(set namespace.Set) error {
	if c.Intermediary == "" {
		return fmt.Errorf("%w: namespace config has no intermediary namespace", ErrProtocol)
	}
	for _, ns := range []string{c.ObfClient, c.ObfServer, c.ObfMerged, c.Intermediary, c.Named} {
		if ns != "" && !set.Contains(ns) {
			return fmt.Errorf("%w: namespace %q not declared by stream %s", ErrProtocol, ns, set)
		}
	}
	return nil
}

// pendingEntry is one visited entry resolved into model slots. Descriptors
// are still in the stream's primary namespace.
type pendingEntry struct {
	primary      string
	intermediary string
	named        string
	client       string
	server       string
	merged       string
	desc         string
}

type pendingClass struct {
	pendingEntry
	fields  []pendingEntry
	methods []pendingEntry
}

// BuilderVisitor materializes a stream into a mappings container. Events are
// collected first; at VisitEnd descriptors are translated to intermediary
// class names and written into the container. Values already present on
// existing entries are kept, so several sources can be layered in order.
type BuilderVisitor struct {
	builder *mappings.Builder
	config  NamespaceConfig

	started    bool
	ended      bool
	namespaces namespace.Set
	classes    []*pendingClass
}

// NewBuilderVisitor returns a visitor writing into b.
func NewBuilderVisitor(b *mappings.Builder, config NamespaceConfig) *BuilderVisitor {
	return &BuilderVisitor{builder: b, config: config}
}

// VisitStart implements MappingsVisitor.
func (v *BuilderVisitor) VisitStart(namespaces namespace.Set) error {
	if v.started {
		return fmt.Errorf("%w: VisitStart called twice", ErrProtocol)
	}
	if err := v.config.Validate(namespaces); err != nil {
		return err
	}
	v.started = true
	v.namespaces = namespaces
	return nil
}

func (v *BuilderVisitor) resolve(c EntryComplex) pendingEntry {
	e := pendingEntry{
		primary:      ValueOf(c, v.namespaces.Primary()),
		intermediary: ValueOf(c, v.config.Intermediary),
		named:        ValueOf(c, v.config.Named),
		client:       ValueOf(c, v.config.ObfClient),
		server:       ValueOf(c, v.config.ObfServer),
		merged:       ValueOf(c, v.config.ObfMerged),
	}
	if e.intermediary == "" {
		e.intermediary = e.primary
	}
	return e
}

// VisitClass implements MappingsVisitor.
func (v *BuilderVisitor) VisitClass(c EntryComplex) (ClassVisitor, error) {
	if !v.started || v.ended {
		return nil, fmt.Errorf("%w: VisitClass outside VisitStart/VisitEnd", ErrProtocol)
	}
	pc := &pendingClass{pendingEntry: v.resolve(c)}
	if pc.intermediary == "" {
		return nil, nil
	}
	v.classes = append(v.classes, pc)
	return &builderClass{owner: v, class: pc}, nil
}

// VisitEnd implements MappingsVisitor.
func (v *BuilderVisitor) VisitEnd() error {
	if !v.started {
		return fmt.Errorf("%w: VisitEnd before VisitStart", ErrProtocol)
	}
	if v.ended {
		return fmt.Errorf("%w: VisitEnd called twice", ErrProtocol)
	}
	v.ended = true

	translate := func(desc string) string { return desc }
	if v.namespaces.Primary() != v.config.Intermediary {
		table := make(map[string]string, len(v.classes))
		for _, pc := range v.classes {
			if pc.primary != "" {
				table[pc.primary] = pc.intermediary
			}
		}
		lookup := mappings.MapLookup(table)
		translate = func(desc string) string { return mappings.RemapDescriptor(desc, lookup) }
	}

	for _, pc := range v.classes {
		class := v.builder.Class(pc.intermediary)
		fillEntry(&class.Entry, pc.pendingEntry)

		for _, pf := range pc.fields {
			f := class.GetOrCreateField(pf.intermediary, translate(pf.desc))
			fillEntry(&f.Entry, pf)
		}
		for _, pm := range pc.methods {
			m := class.GetOrCreateMethod(pm.intermediary, translate(pm.desc))
			fillEntry(&m.Entry, pm)
		}
	}
	v.classes = nil
	return nil
}

func fillEntry(e *mappings.Entry, p pendingEntry) {
	e.Obf.Fill(p.client, p.server, p.merged)
	e.FillMapped(p.named)
}

type builderClass struct {
	owner *BuilderVisitor
	class *pendingClass
}

func (c *builderClass) VisitDocs(string) error { return nil }

func (c *builderClass) VisitField(e EntryComplex, desc string) (DocsVisitor, error) {
	p := c.owner.resolve(e)
	if p.intermediary == "" {
		return nil, nil
	}
	p.desc = desc
	c.class.fields = append(c.class.fields, p)
	return nil, nil
}

func (c *builderClass) VisitMethod(e EntryComplex, desc string) (MethodVisitor, error) {
	p := c.owner.resolve(e)
	if p.intermediary == "" {
		return nil, nil
	}
	p.desc = desc
	c.class.methods = append(c.class.methods, p)
	return nil, nil
}
