// Package visitor defines the event protocol that decouples mapping parsers
// and writers from the in-memory model.
//
// A stream is VisitStart, any number of VisitClass calls (each followed by
// that class's members), then VisitEnd. Descriptors passed to VisitField and
// VisitMethod are written in the class names of the stream's primary
// namespace. A nil visitor returned from any Visit call means "skip the
// children of this entry".
package visitor

import (
	"errors"

	"mapdex/internal/namespace"
)

// ErrProtocol marks misuse of the visitor protocol, such as a second
// VisitStart or a class visited before VisitStart.
var ErrProtocol = errors.New("visitor protocol violation")

// EntryComplex is one entry seen through every namespace of the stream.
type EntryComplex interface {
	// Get returns the entry's name in ns. Namespaces the entry is not
	// populated in report false.
	Get(ns string) (string, bool)
	Namespaces() namespace.Set
}

// DocsVisitor receives documentation attached to an entry.
type DocsVisitor interface {
	VisitDocs(text string) error
}

// MappingsVisitor is the root of a stream.
type MappingsVisitor interface {
	VisitStart(namespaces namespace.Set) error
	VisitClass(c EntryComplex) (ClassVisitor, error)
	VisitEnd() error
}

// ClassVisitor receives the members of one class.
type ClassVisitor interface {
	DocsVisitor
	VisitField(c EntryComplex, desc string) (DocsVisitor, error)
	VisitMethod(c EntryComplex, desc string) (MethodVisitor, error)
}

// MethodVisitor receives the parameters of one method.
type MethodVisitor interface {
	DocsVisitor
	VisitParameter(index int, c EntryComplex) (DocsVisitor, error)
}

// Names is the plain EntryComplex: one value per namespace, in set order.
// Empty values are unpopulated.
type Names struct {
	set    namespace.Set
	values []string
}

// NewNames pairs values with the namespaces of set. Missing trailing values
// are unpopulated.
func NewNames(set namespace.Set, values ...string) Names {
	return Names{set: set, values: values}
}

// Get implements EntryComplex.
func (n Names) Get(ns string) (string, bool) {
	i := n.set.Index(ns)
	if i < 0 || i >= len(n.values) || n.values[i] == "" {
		return "", false
	}
	return n.values[i], true
}

// Namespaces implements EntryComplex.
func (n Names) Namespaces() namespace.Set { return n.set }

// Values returns the raw per-namespace values.
func (n Names) Values() []string { return n.values }

// ValueOf returns c's name in ns or "".
func ValueOf(c EntryComplex, ns string) string {
	if ns == "" {
		return ""
	}
	v, _ := c.Get(ns)
	return v
}
