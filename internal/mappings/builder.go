package mappings

import "mapdex/internal/intern"

// Builder populates a container during one construction pass. It is not safe
// for concurrent use; the interner it holds is dropped with it.
type Builder struct {
	mappings *Mappings
	interner *intern.Interner
}

// NewBuilder wraps m. A nil interner gets a fresh one sized to the container.
func NewBuilder(m *Mappings, in *intern.Interner) *Builder {
	if in == nil {
		in = intern.NewSized(len(m.Classes) * 4)
	}
	return &Builder{mappings: m, interner: in}
}

// Mappings exposes the container under construction.
func (b *Builder) Mappings() *Mappings { return b.mappings }

// Class returns the class keyed by intermediary name, creating it if needed.
func (b *Builder) Class(intermediary string) *Class {
	return b.mappings.GetOrCreateClass(intermediary)
}

// Build interns every name, descriptor and obfuscated name, re-keys the class
// map with the canonical strings, and returns the container.
func (b *Builder) Build() *Mappings {
	in := b.interner
	m := b.mappings
	m.Version = in.Intern(m.Version)
	m.Name = in.Intern(m.Name)
	m.Namespace = in.Intern(m.Namespace)

	for _, c := range m.Classes {
		internEntry(in, &c.Entry)
		for _, meth := range c.Methods {
			internEntry(in, &meth.Entry)
			meth.IntermediaryDesc = in.Intern(meth.IntermediaryDesc)
		}
		for _, f := range c.Fields {
			internEntry(in, &f.Entry)
			f.IntermediaryDesc = in.Intern(f.IntermediaryDesc)
		}
	}
	m.Rearrange()
	return m
}

func internEntry(in *intern.Interner, e *Entry) {
	e.IntermediaryName = in.Intern(e.IntermediaryName)
	e.MappedName = in.Intern(e.MappedName)
	e.Obf.Client = in.Intern(e.Obf.Client)
	e.Obf.Server = in.Intern(e.Obf.Server)
	e.Obf.Merged = in.Intern(e.Obf.Merged)
}
