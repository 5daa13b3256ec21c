// Package namespace holds namespace identifiers: the ordered id sets a mappings
// stream declares (obf, srg, intermediary, named...) and the catalog of
// mapping providers (yarn, mojang, mcp...) a deployment serves.
package namespace

import (
	"fmt"
	"strings"
)

// Well-known namespace ids used by the bundled parsers.
const (
	Obf          = "obf"
	ObfClient    = "obf_client"
	ObfServer    = "obf_server"
	SRG          = "srg"
	Intermediary = "intermediary"
	Named        = "named"
	Mapped       = "mapped"
	ID           = "id"
)

// Set is an ordered, duplicate-free list of namespace ids. The first id is the
// primary namespace: descriptors in a stream are expressed in its class names.
type Set struct {
	ids   []string
	index map[string]int
}

// NewSet builds a Set. Duplicate or empty ids are rejected.
func NewSet(ids ...string) (Set, error) {
	s := Set{ids: make([]string, 0, len(ids)), index: make(map[string]int, len(ids))}
	for _, id := range ids {
		if id == "" {
			return Set{}, fmt.Errorf("empty namespace id in %v", ids)
		}
		if _, dup := s.index[id]; dup {
			return Set{}, fmt.Errorf("duplicate namespace id %q in %v", id, ids)
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s, nil
}

// MustSet is NewSet for fixed, known-good id lists.
func MustSet(ids ...string) Set {
	s, err := NewSet(ids...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of namespaces.
func (s Set) Len() int { return len(s.ids) }

// IDs returns a copy of the ids in declaration order.
func (s Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// At returns the id at position i.
func (s Set) At(i int) string { return s.ids[i] }

// Index returns the position of id, or -1.
func (s Set) Index(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Contains reports whether id is part of the set.
func (s Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Primary returns the first namespace, or "" for an empty set.
func (s Set) Primary() string {
	if len(s.ids) == 0 {
		return ""
	}
	return s.ids[0]
}

// Rename returns a copy with ids substituted through m (missing keys kept).
func (s Set) Rename(m map[string]string) (Set, error) {
	ids := make([]string, len(s.ids))
	for i, id := range s.ids {
		if to, ok := m[id]; ok {
			ids[i] = to
		} else {
			ids[i] = id
		}
	}
	return NewSet(ids...)
}

func (s Set) String() string {
	return "{" + strings.Join(s.ids, ",") + "}"
}
