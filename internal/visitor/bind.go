package visitor

import (
	"sort"

	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
)

// BindOptions names the namespaces Bind emits. Zero values fall back to the
// well-known ids.
type BindOptions struct {
	Intermediary string
	Named        string
	ObfMerged    string
	ObfClient    string
	ObfServer    string
}

func (o BindOptions) withDefaults() BindOptions {
	if o.Intermediary == "" {
		o.Intermediary = namespace.Intermediary
	}
	if o.Named == "" {
		o.Named = namespace.Named
	}
	if o.ObfMerged == "" {
		o.ObfMerged = namespace.Obf
	}
	if o.ObfClient == "" {
		o.ObfClient = namespace.ObfClient
	}
	if o.ObfServer == "" {
		o.ObfServer = namespace.ObfServer
	}
	return o
}

// Bind replays a container as a visitor stream: intermediary first (so
// descriptors need no translation), then named, then the obfuscated slots.
// Client and server namespaces are only declared when some entry is split.
// Classes and members are emitted in sorted order.
func Bind(m *mappings.Mappings, v MappingsVisitor, opts BindOptions) error {
	opts = opts.withDefaults()

	ids := []string{opts.Intermediary, opts.Named, opts.ObfMerged}
	if hasSplit(m) {
		ids = append(ids, opts.ObfClient, opts.ObfServer)
	}
	set, err := namespace.NewSet(ids...)
	if err != nil {
		return err
	}
	if err := v.VisitStart(set); err != nil {
		return err
	}

	for _, c := range m.SortedClasses() {
		cv, err := v.VisitClass(entryNames(set, c.Entry))
		if err != nil {
			return err
		}
		if cv == nil {
			continue
		}

		fields := append([]*mappings.Field(nil), c.Fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].IntermediaryName < fields[j].IntermediaryName })
		for _, f := range fields {
			if _, err := cv.VisitField(entryNames(set, f.Entry), f.IntermediaryDesc); err != nil {
				return err
			}
		}

		methods := append([]*mappings.Method(nil), c.Methods...)
		sort.Slice(methods, func(i, j int) bool {
			if methods[i].IntermediaryName != methods[j].IntermediaryName {
				return methods[i].IntermediaryName < methods[j].IntermediaryName
			}
			return methods[i].IntermediaryDesc < methods[j].IntermediaryDesc
		})
		for _, meth := range methods {
			if _, err := cv.VisitMethod(entryNames(set, meth.Entry), meth.IntermediaryDesc); err != nil {
				return err
			}
		}
	}
	return v.VisitEnd()
}

func entryNames(set namespace.Set, e mappings.Entry) Names {
	values := []string{e.IntermediaryName, e.MappedName, e.Obf.Merged}
	if set.Len() == 5 {
		values = append(values, e.Obf.Client, e.Obf.Server)
	}
	return NewNames(set, values...)
}

func hasSplit(m *mappings.Mappings) bool {
	split := func(o mappings.Obf) bool { return !o.IsMerged() && (o.Client != "" || o.Server != "") }
	for _, c := range m.Classes {
		if split(c.Obf) {
			return true
		}
		for _, f := range c.Fields {
			if split(f.Obf) {
				return true
			}
		}
		for _, meth := range c.Methods {
			if split(meth.Obf) {
				return true
			}
		}
	}
	return false
}
