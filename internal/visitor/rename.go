package visitor

import "mapdex/internal/namespace"

// Rename wraps next so it sees namespace ids substituted through renames
// ("srg" -> "intermediary", say). Every call is forwarded explicitly.
func Rename(next MappingsVisitor, renames map[string]string) MappingsVisitor {
	return &renameVisitor{next: next, renames: renames}
}

type renameVisitor struct {
	next    MappingsVisitor
	renames map[string]string
	set     namespace.Set
	reverse map[string]string
}

func (r *renameVisitor) VisitStart(namespaces namespace.Set) error {
	renamed, err := namespaces.Rename(r.renames)
	if err != nil {
		return err
	}
	r.set = renamed
	r.reverse = make(map[string]string, renamed.Len())
	for i := 0; i < renamed.Len(); i++ {
		r.reverse[renamed.At(i)] = namespaces.At(i)
	}
	return r.next.VisitStart(renamed)
}

func (r *renameVisitor) wrap(c EntryComplex) EntryComplex {
	return renamedComplex{inner: c, set: r.set, reverse: r.reverse}
}

func (r *renameVisitor) VisitClass(c EntryComplex) (ClassVisitor, error) {
	cv, err := r.next.VisitClass(r.wrap(c))
	if err != nil || cv == nil {
		return nil, err
	}
	return &renameClass{owner: r, next: cv}, nil
}

func (r *renameVisitor) VisitEnd() error { return r.next.VisitEnd() }

type renameClass struct {
	owner *renameVisitor
	next  ClassVisitor
}

func (c *renameClass) VisitDocs(text string) error { return c.next.VisitDocs(text) }

func (c *renameClass) VisitField(e EntryComplex, desc string) (DocsVisitor, error) {
	return c.next.VisitField(c.owner.wrap(e), desc)
}

func (c *renameClass) VisitMethod(e EntryComplex, desc string) (MethodVisitor, error) {
	mv, err := c.next.VisitMethod(c.owner.wrap(e), desc)
	if err != nil || mv == nil {
		return nil, err
	}
	return &renameMethod{owner: c.owner, next: mv}, nil
}

type renameMethod struct {
	owner *renameVisitor
	next  MethodVisitor
}

func (m *renameMethod) VisitDocs(text string) error { return m.next.VisitDocs(text) }

func (m *renameMethod) VisitParameter(index int, e EntryComplex) (DocsVisitor, error) {
	return m.next.VisitParameter(index, m.owner.wrap(e))
}

type renamedComplex struct {
	inner   EntryComplex
	set     namespace.Set
	reverse map[string]string
}

func (c renamedComplex) Get(ns string) (string, bool) {
	orig, ok := c.reverse[ns]
	if !ok {
		return "", false
	}
	return c.inner.Get(orig)
}

func (c renamedComplex) Namespaces() namespace.Set { return c.set }
