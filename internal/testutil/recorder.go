package testutil

import (
	"fmt"
	"strings"

	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

// Recorder is a visitor that writes every event as one line, so tests can
// compare whole streams. Unpopulated namespace values print as "-".
type Recorder struct {
	Events []string
}

func (r *Recorder) add(format string, args ...interface{}) {
	r.Events = append(r.Events, fmt.Sprintf(format, args...))
}

func names(c visitor.EntryComplex) string {
	set := c.Namespaces()
	parts := make([]string, set.Len())
	for i := range parts {
		if v, ok := c.Get(set.At(i)); ok {
			parts[i] = v
		} else {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, " ")
}

func (r *Recorder) VisitStart(ns namespace.Set) error {
	r.add("start %s", ns)
	return nil
}

func (r *Recorder) VisitClass(c visitor.EntryComplex) (visitor.ClassVisitor, error) {
	r.add("class %s", names(c))
	return recorderClass{r}, nil
}

func (r *Recorder) VisitEnd() error {
	r.add("end")
	return nil
}

// String joins the events with newlines.
func (r *Recorder) String() string {
	return strings.Join(r.Events, "\n")
}

type recorderClass struct{ r *Recorder }

func (c recorderClass) VisitDocs(text string) error {
	c.r.add("  docs %s", text)
	return nil
}

func (c recorderClass) VisitField(e visitor.EntryComplex, desc string) (visitor.DocsVisitor, error) {
	c.r.add("  field %s : %s", names(e), desc)
	return recorderDocs{c.r, "    "}, nil
}

func (c recorderClass) VisitMethod(e visitor.EntryComplex, desc string) (visitor.MethodVisitor, error) {
	c.r.add("  method %s : %s", names(e), desc)
	return recorderMethod{c.r}, nil
}

type recorderMethod struct{ r *Recorder }

func (m recorderMethod) VisitDocs(text string) error {
	m.r.add("    docs %s", text)
	return nil
}

func (m recorderMethod) VisitParameter(index int, e visitor.EntryComplex) (visitor.DocsVisitor, error) {
	m.r.add("    param %d %s", index, names(e))
	return recorderDocs{m.r, "      "}, nil
}

type recorderDocs struct {
	r      *Recorder
	indent string
}

func (d recorderDocs) VisitDocs(text string) error {
	d.r.add("%sdocs %s", d.indent, text)
	return nil
}
