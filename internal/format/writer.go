package format

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

// TinyV2Writer serializes a visitor stream as Tiny v2. The body is buffered
// until VisitEnd so the escaped-names property can be declared when some
// name needs it.
type TinyV2Writer struct {
	w       io.Writer
	set     namespace.Set
	body    bytes.Buffer
	escaped bool
}

// NewTinyV2Writer returns a writer emitting to w.
func NewTinyV2Writer(w io.Writer) *TinyV2Writer {
	return &TinyV2Writer{w: w}
}

func (t *TinyV2Writer) VisitStart(ns namespace.Set) error {
	if t.set.Len() != 0 {
		return fmt.Errorf("%w: VisitStart called twice", visitor.ErrProtocol)
	}
	if ns.Len() < 2 {
		return fmt.Errorf("tiny v2 needs at least two namespaces, got %s", ns)
	}
	t.set = ns
	return nil
}

func (t *TinyV2Writer) line(indent int, cols ...string) {
	for i := 0; i < indent; i++ {
		t.body.WriteByte('\t')
	}
	t.body.WriteString(strings.Join(cols, "\t"))
	t.body.WriteByte('\n')
}

func (t *TinyV2Writer) names(c visitor.EntryComplex) []string {
	out := make([]string, t.set.Len())
	for i := range out {
		v := visitor.ValueOf(c, t.set.At(i))
		if esc := escapeTiny(v); esc != v {
			t.escaped = true
			v = esc
		}
		out[i] = v
	}
	return out
}

func (t *TinyV2Writer) VisitClass(c visitor.EntryComplex) (visitor.ClassVisitor, error) {
	if t.set.Len() == 0 {
		return nil, fmt.Errorf("%w: VisitClass before VisitStart", visitor.ErrProtocol)
	}
	t.line(0, append([]string{"c"}, t.names(c)...)...)
	return tinyClassWriter{t}, nil
}

func (t *TinyV2Writer) VisitEnd() error {
	bw := bufio.NewWriter(t.w)
	bw.WriteString("tiny\t2\t0\t" + strings.Join(t.set.IDs(), "\t") + "\n")
	if t.escaped {
		bw.WriteString("\tescaped-names\n")
	}
	if _, err := bw.Write(t.body.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

type tinyClassWriter struct{ t *TinyV2Writer }

func (c tinyClassWriter) VisitDocs(text string) error {
	c.t.line(1, "c", escapeTiny(text))
	return nil
}

func (c tinyClassWriter) VisitField(e visitor.EntryComplex, desc string) (visitor.DocsVisitor, error) {
	c.t.line(1, append([]string{"f", desc}, c.t.names(e)...)...)
	return tinyDocsWriter{c.t, 2}, nil
}

func (c tinyClassWriter) VisitMethod(e visitor.EntryComplex, desc string) (visitor.MethodVisitor, error) {
	c.t.line(1, append([]string{"m", desc}, c.t.names(e)...)...)
	return tinyMethodWriter{c.t}, nil
}

type tinyMethodWriter struct{ t *TinyV2Writer }

func (m tinyMethodWriter) VisitDocs(text string) error {
	m.t.line(2, "c", escapeTiny(text))
	return nil
}

func (m tinyMethodWriter) VisitParameter(index int, e visitor.EntryComplex) (visitor.DocsVisitor, error) {
	m.t.line(2, append([]string{"p", strconv.Itoa(index)}, m.t.names(e)...)...)
	return tinyDocsWriter{m.t, 3}, nil
}

type tinyDocsWriter struct {
	t      *TinyV2Writer
	indent int
}

func (d tinyDocsWriter) VisitDocs(text string) error {
	d.t.line(d.indent, "c", escapeTiny(text))
	return nil
}

// TSRG2Writer serializes a visitor stream as TSRG2. TSRG2 has no empty
// columns, so a name missing in some namespace repeats the first name the
// entry has. Docs are dropped.
type TSRG2Writer struct {
	w   *bufio.Writer
	set namespace.Set
}

// NewTSRG2Writer returns a writer emitting to w.
func NewTSRG2Writer(w io.Writer) *TSRG2Writer {
	return &TSRG2Writer{w: bufio.NewWriter(w)}
}

func (t *TSRG2Writer) VisitStart(ns namespace.Set) error {
	if t.set.Len() != 0 {
		return fmt.Errorf("%w: VisitStart called twice", visitor.ErrProtocol)
	}
	if ns.Len() < 2 {
		return fmt.Errorf("tsrg2 needs at least two namespaces, got %s", ns)
	}
	t.set = ns
	_, err := t.w.WriteString("tsrg2 " + strings.Join(ns.IDs(), " ") + "\n")
	return err
}

func (t *TSRG2Writer) names(c visitor.EntryComplex) []string {
	out := make([]string, t.set.Len())
	fallback := ""
	for i := range out {
		out[i] = visitor.ValueOf(c, t.set.At(i))
		if fallback == "" {
			fallback = out[i]
		}
	}
	for i := range out {
		if out[i] == "" {
			out[i] = fallback
		}
	}
	return out
}

func (t *TSRG2Writer) VisitClass(c visitor.EntryComplex) (visitor.ClassVisitor, error) {
	if t.set.Len() == 0 {
		return nil, fmt.Errorf("%w: VisitClass before VisitStart", visitor.ErrProtocol)
	}
	_, err := t.w.WriteString(strings.Join(t.names(c), " ") + "\n")
	return tsrgClassWriter{t}, err
}

func (t *TSRG2Writer) VisitEnd() error {
	return t.w.Flush()
}

type tsrgClassWriter struct{ t *TSRG2Writer }

func (c tsrgClassWriter) VisitDocs(string) error { return nil }

func (c tsrgClassWriter) member(e visitor.EntryComplex, desc string) error {
	names := c.t.names(e)
	cols := names
	if desc != "" {
		cols = append([]string{names[0], desc}, names[1:]...)
	}
	_, err := c.t.w.WriteString("\t" + strings.Join(cols, " ") + "\n")
	return err
}

func (c tsrgClassWriter) VisitField(e visitor.EntryComplex, desc string) (visitor.DocsVisitor, error) {
	return nil, c.member(e, desc)
}

func (c tsrgClassWriter) VisitMethod(e visitor.EntryComplex, desc string) (visitor.MethodVisitor, error) {
	if err := c.member(e, desc); err != nil {
		return nil, err
	}
	return tsrgMethodWriter{c.t}, nil
}

type tsrgMethodWriter struct{ t *TSRG2Writer }

func (m tsrgMethodWriter) VisitDocs(string) error { return nil }

func (m tsrgMethodWriter) VisitParameter(index int, e visitor.EntryComplex) (visitor.DocsVisitor, error) {
	_, err := m.t.w.WriteString("\t\t" + strconv.Itoa(index) + " " + strings.Join(m.t.names(e), " ") + "\n")
	return nil, err
}

// NewWriter returns the writer visitor for f. Only Tiny v2 and TSRG2 can be
// written.
func NewWriter(f Format, w io.Writer) (visitor.MappingsVisitor, error) {
	switch f {
	case TinyV2:
		return NewTinyV2Writer(w), nil
	case TSRG2:
		return NewTSRG2Writer(w), nil
	}
	return nil, fmt.Errorf("writing %s is not supported", f)
}
