// Package mappings is the in-memory model of name mappings: classes, methods
// and fields keyed by intermediary name, each carrying obfuscated names and an
// optional human-readable mapped name.
//
// A Mappings container is mutated only by its builder, Rearrange and
// RewireIntermediaryFrom, all of which require exclusive ownership. Once
// construction is finished the container is treated as read-only and may be
// queried concurrently.
package mappings

import (
	"sort"
	"strings"
)

// Source names the format (or producer) a container was parsed from.
// The set is open-ended; these are the ones the bundled parsers emit.
type Source string

const (
	SourceProguard Source = "proguard"
	SourceSRG      Source = "srg"
	SourceTSRG     Source = "tsrg"
	SourceTSRG2    Source = "tsrg2"
	SourceTinyV1   Source = "tiny_v1"
	SourceTinyV2   Source = "tiny_v2"
	SourceEnigma   Source = "enigma"
)

// Obf holds the obfuscated names of an entry. When Merged is set the entry is
// in merged mode and Client/Server are unused; otherwise Client and Server are
// tracked independently (split mode). Empty strings mean unset.
type Obf struct {
	Client string `json:"client,omitempty"`
	Server string `json:"server,omitempty"`
	Merged string `json:"merged,omitempty"`
}

// IsMerged reports whether the entry uses a single obfuscated name.
func (o Obf) IsMerged() bool { return o.Merged != "" }

// IsEmpty reports whether no obfuscated name is known.
func (o Obf) IsEmpty() bool { return o.Client == "" && o.Server == "" && o.Merged == "" }

// Names lists the distinct obfuscated names: the merged name alone, or the
// server name followed by the client name in split mode.
func (o Obf) Names() []string {
	if o.IsMerged() {
		return []string{o.Merged}
	}
	switch {
	case o.Server != "" && o.Client != "":
		if o.Server == o.Client {
			return []string{o.Server}
		}
		return []string{o.Server, o.Client}
	case o.Server != "":
		return []string{o.Server}
	case o.Client != "":
		return []string{o.Client}
	}
	return nil
}

// JoinKey is the name used to line entries up across containers: the merged
// name, falling back to client and then server for split entries.
func (o Obf) JoinKey() string {
	switch {
	case o.Merged != "":
		return o.Merged
	case o.Client != "":
		return o.Client
	default:
		return o.Server
	}
}

// Fill sets each slot that is still empty. Slots that already hold a value
// keep it, so the first source layered onto a container wins.
func (o *Obf) Fill(client, server, merged string) {
	if o.Client == "" {
		o.Client = client
	}
	if o.Server == "" {
		o.Server = server
	}
	if o.Merged == "" {
		o.Merged = merged
	}
}

// Entry is the naming state shared by classes and members.
type Entry struct {
	IntermediaryName string `json:"intermediary"`
	Obf              Obf    `json:"obf"`
	// MappedName is empty when the entry is unmapped.
	MappedName string `json:"mapped,omitempty"`
}

// OptimumName is the mapped name if present, else the intermediary name.
func (e *Entry) OptimumName() string {
	if e.MappedName != "" {
		return e.MappedName
	}
	return e.IntermediaryName
}

// IsMapped reports whether a human-readable name is present.
func (e *Entry) IsMapped() bool { return e.MappedName != "" }

// FillMapped sets the mapped name unless one is already present.
func (e *Entry) FillMapped(name string) {
	if e.MappedName == "" {
		e.MappedName = name
	}
}

// Member is an Entry with a JVM descriptor written in intermediary class names.
type Member struct {
	Entry
	IntermediaryDesc string `json:"desc"`
}

// Method is a class member with a method descriptor.
type Method struct {
	Member
}

// Field is a class member with a field descriptor.
type Field struct {
	Member
}

// Class owns its methods and fields. Methods are unique by (name, desc) and
// fields by name; list order carries no meaning.
type Class struct {
	Entry
	Methods []*Method `json:"methods,omitempty"`
	Fields  []*Field  `json:"fields,omitempty"`
}

// GetMethod finds a method by intermediary name and descriptor.
func (c *Class) GetMethod(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.IntermediaryName == name && m.IntermediaryDesc == desc {
			return m
		}
	}
	return nil
}

// GetOrCreateMethod returns the method keyed by (name, desc), adding it if missing.
func (c *Class) GetOrCreateMethod(name, desc string) *Method {
	if m := c.GetMethod(name, desc); m != nil {
		return m
	}
	m := &Method{Member{Entry: Entry{IntermediaryName: name}, IntermediaryDesc: desc}}
	c.Methods = append(c.Methods, m)
	return m
}

// GetField finds a field by intermediary name.
func (c *Class) GetField(name string) *Field {
	for _, f := range c.Fields {
		if f.IntermediaryName == name {
			return f
		}
	}
	return nil
}

// GetOrCreateField returns the field keyed by name, adding it if missing.
// A known descriptor is filled into an existing field that lacks one.
func (c *Class) GetOrCreateField(name, desc string) *Field {
	if f := c.GetField(name); f != nil {
		if f.IntermediaryDesc == "" {
			f.IntermediaryDesc = desc
		}
		return f
	}
	f := &Field{Member{Entry: Entry{IntermediaryName: name}, IntermediaryDesc: desc}}
	c.Fields = append(c.Fields, f)
	return f
}

// Metadata describes a container without its class map, so results can be
// handed out without keeping every class alive.
type Metadata struct {
	Version   string `json:"version"`
	Name      string `json:"name"`
	Source    Source `json:"source,omitempty"`
	Namespace string `json:"namespace"`
}

// Mappings is a container of classes keyed by intermediary name.
type Mappings struct {
	Version   string
	Name      string
	Source    Source
	Namespace string
	Classes   map[string]*Class
}

// New creates an empty container.
func New(version, name string, source Source, namespace string) *Mappings {
	return &Mappings{
		Version:   version,
		Name:      name,
		Source:    source,
		Namespace: namespace,
		Classes:   make(map[string]*Class),
	}
}

// Metadata snapshots the descriptive fields.
func (m *Mappings) Metadata() Metadata {
	return Metadata{Version: m.Version, Name: m.Name, Source: m.Source, Namespace: m.Namespace}
}

// GetClass looks a class up by intermediary name.
func (m *Mappings) GetClass(name string) *Class {
	return m.Classes[name]
}

// GetOrCreateClass returns the class keyed by name, adding it if missing.
func (m *Mappings) GetOrCreateClass(name string) *Class {
	if c, ok := m.Classes[name]; ok {
		return c
	}
	c := &Class{Entry: Entry{IntermediaryName: name}}
	m.Classes[name] = c
	return c
}

// Rearrange rebuilds the name index from each class's current intermediary
// name. Call it after anything renames classes. If two classes end up with
// the same name, the one whose previous key sorts first is kept.
func (m *Mappings) Rearrange() {
	keys := make([]string, 0, len(m.Classes))
	for k := range m.Classes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rebuilt := make(map[string]*Class, len(m.Classes))
	for _, k := range keys {
		c := m.Classes[k]
		if _, taken := rebuilt[c.IntermediaryName]; taken {
			continue
		}
		rebuilt[c.IntermediaryName] = c
	}
	m.Classes = rebuilt
}

// SortedClasses returns the classes ordered by intermediary name.
func (m *Mappings) SortedClasses() []*Class {
	out := make([]*Class, 0, len(m.Classes))
	for _, c := range m.Classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IntermediaryName < out[j].IntermediaryName
	})
	return out
}

// Counts returns the number of classes, methods and fields.
func (m *Mappings) Counts() (classes, methods, fields int) {
	for _, c := range m.Classes {
		methods += len(c.Methods)
		fields += len(c.Fields)
	}
	return len(m.Classes), methods, fields
}

// SimpleName strips the package prefix: "a/b/C" -> "C".
func SimpleName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
