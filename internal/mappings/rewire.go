package mappings

import "strings"

type memberKey struct {
	obf  string
	desc string
}

// RewireIntermediaryFrom re-keys target onto the intermediary names of source,
// joining classes, methods and fields on their obfuscated names. Method joins
// also compare descriptors after translating both sides to obfuscated class
// names.
//
// A matched entry takes the source's intermediary name; its previous name
// becomes the mapped name when mapClassNames is set and is cleared otherwise.
// Unmatched members are dropped when removeUnfound is set, except methods whose
// name starts with '<'. Kept unmatched members, and members of kept unmatched
// classes, have their descriptors rewritten to the new class names.
//
// The rewrite happens in place and needs exclusive ownership of target.
// Running it twice against the same source does not reproduce the first
// result: the second pass sees intermediary names where it expects the
// original ones.
func RewireIntermediaryFrom(target, source *Mappings, removeUnfound, mapClassNames bool) {
	sourceByObf := make(map[string]*Class, len(source.Classes))
	sourceToObf := make(map[string]string, len(source.Classes))
	for _, c := range source.Classes {
		key := c.Obf.JoinKey()
		if key == "" {
			continue
		}
		sourceByObf[key] = c
		sourceToObf[c.IntermediaryName] = key
	}

	targetToObf := make(map[string]string, len(target.Classes))
	targetToSource := make(map[string]string, len(target.Classes))
	for _, c := range target.Classes {
		key := c.Obf.JoinKey()
		if key == "" {
			continue
		}
		targetToObf[c.IntermediaryName] = key
		if src, ok := sourceByObf[key]; ok {
			targetToSource[c.IntermediaryName] = src.IntermediaryName
		}
	}

	toObf := MapLookup(targetToObf)
	sourceObf := MapLookup(sourceToObf)
	toSource := MapLookup(targetToSource)

	for key, c := range target.Classes {
		src, ok := sourceByObf[c.Obf.JoinKey()]
		if !ok || c.Obf.JoinKey() == "" {
			if removeUnfound {
				delete(target.Classes, key)
				continue
			}
			for _, m := range c.Methods {
				m.IntermediaryDesc = RemapDescriptor(m.IntermediaryDesc, toSource)
			}
			for _, f := range c.Fields {
				f.IntermediaryDesc = RemapDescriptor(f.IntermediaryDesc, toSource)
			}
			continue
		}

		relocate(&c.Entry, src.IntermediaryName, mapClassNames)
		c.Methods = rewireMethods(c.Methods, src.Methods, toObf, sourceObf, toSource, removeUnfound, mapClassNames)
		c.Fields = rewireFields(c.Fields, src.Fields, toSource, removeUnfound, mapClassNames)
	}

	target.Rearrange()
}

func rewireMethods(methods, sourceMethods []*Method, toObf, sourceObf, toSource func(string) (string, bool), removeUnfound, mapNames bool) []*Method {
	index := make(map[memberKey]*Method, len(sourceMethods))
	for _, m := range sourceMethods {
		name := m.Obf.JoinKey()
		if name == "" {
			continue
		}
		index[memberKey{name, RemapDescriptor(m.IntermediaryDesc, sourceObf)}] = m
	}

	kept := methods[:0]
	for _, m := range methods {
		name := m.Obf.JoinKey()
		if name != "" {
			if src, ok := index[memberKey{name, RemapDescriptor(m.IntermediaryDesc, toObf)}]; ok {
				relocate(&m.Entry, src.IntermediaryName, mapNames)
				m.IntermediaryDesc = src.IntermediaryDesc
				kept = append(kept, m)
				continue
			}
		}
		if removeUnfound && !strings.HasPrefix(m.IntermediaryName, "<") {
			continue
		}
		m.IntermediaryDesc = RemapDescriptor(m.IntermediaryDesc, toSource)
		kept = append(kept, m)
	}
	return kept
}

func rewireFields(fields, sourceFields []*Field, toSource func(string) (string, bool), removeUnfound, mapNames bool) []*Field {
	index := make(map[string]*Field, len(sourceFields))
	for _, f := range sourceFields {
		if name := f.Obf.JoinKey(); name != "" {
			index[name] = f
		}
	}

	kept := fields[:0]
	for _, f := range fields {
		if src, ok := index[f.Obf.JoinKey()]; ok && f.Obf.JoinKey() != "" {
			relocate(&f.Entry, src.IntermediaryName, mapNames)
			if src.IntermediaryDesc != "" {
				f.IntermediaryDesc = src.IntermediaryDesc
			} else {
				f.IntermediaryDesc = RemapDescriptor(f.IntermediaryDesc, toSource)
			}
			kept = append(kept, f)
			continue
		}
		if removeUnfound {
			continue
		}
		f.IntermediaryDesc = RemapDescriptor(f.IntermediaryDesc, toSource)
		kept = append(kept, f)
	}
	return kept
}

func relocate(e *Entry, intermediary string, keepAsMapped bool) {
	if keepAsMapped {
		e.MappedName = e.IntermediaryName
	} else {
		e.MappedName = ""
	}
	e.IntermediaryName = intermediary
}
