package format

import (
	"io"
	"strconv"
	"strings"

	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

// TinyV2Parser reads Tiny v2 ("tiny\t2\t0\t<ns>..."). Empty name columns are
// unpopulated. With the escaped-names property, names are unescaped;
// comments are always escaped.
type TinyV2Parser struct {
	r io.Reader
}

func NewTinyV2Parser(r io.Reader) *TinyV2Parser {
	return &TinyV2Parser{r: r}
}

// tiny v2 nesting levels
const (
	tinyClass = iota
	tinyMember
	tinyParam
)

func (p *TinyV2Parser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(TinyV2, "", p.r)

	if !l.next() {
		if err := l.err(); err != nil {
			return err
		}
		return &ParseError{Format: TinyV2, Line: 1, Msg: "missing tiny header"}
	}
	header := strings.Split(l.text, "\t")
	if len(header) < 5 || header[0] != "tiny" || header[1] != "2" {
		return l.errorf("header must be 'tiny\\t2\\t<minor>\\t<ns>\\t<ns>...'")
	}
	if _, err := strconv.Atoi(header[2]); err != nil {
		return l.errorf("invalid minor version %q", header[2])
	}
	set, err := namespace.NewSet(header[3:]...)
	if err != nil {
		return l.errorf("%v", err)
	}
	n := set.Len()

	escaped := false
	started := false
	start := func() error {
		if started {
			return nil
		}
		started = true
		return v.VisitStart(set)
	}

	// docs targets per nesting level; kind tracks what the level-1 entry is
	var (
		cv       visitor.ClassVisitor
		mv       visitor.MethodVisitor
		docs     [3]visitor.DocsVisitor
		depth    = -1 // depth of the last entry line
		isMethod bool
	)

	names := func(cols []string) ([]string, error) {
		if len(cols) != n {
			return nil, l.errorf("expected %d names, got %d", n, len(cols))
		}
		if !escaped {
			return cols, nil
		}
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = unescapeTiny(c)
		}
		return out, nil
	}

	for l.next() {
		if l.text == "" {
			continue
		}
		indent := indentOf(l.text)
		cols := strings.Split(l.text[indent:], "\t")

		// properties sit between the header and the first class
		if !started && indent == 1 {
			if cols[0] == "escaped-names" {
				escaped = true
			}
			continue
		}
		if err := start(); err != nil {
			return err
		}
		if indent > depth+1 {
			return l.errorf("indentation %d under depth %d", indent, depth)
		}

		tag := cols[0]
		if tag == "c" && indent > 0 {
			if len(cols) != 2 {
				return l.errorf("comment expects 1 column, got %d", len(cols)-1)
			}
			if target := docs[indent-1]; target != nil {
				if err := target.VisitDocs(unescapeTiny(cols[1])); err != nil {
					return err
				}
			}
			continue
		}

		switch indent {
		case tinyClass:
			if tag != "c" {
				return l.errorf("expected class line, got %q", tag)
			}
			ns, err := names(cols[1:])
			if err != nil {
				return err
			}
			if cv, err = v.VisitClass(visitor.NewNames(set, ns...)); err != nil {
				return err
			}
			docs = [3]visitor.DocsVisitor{cv, nil, nil}
			if cv == nil {
				docs[0] = nil
			}
		case tinyMember:
			if tag != "f" && tag != "m" {
				return l.errorf("expected field or method line, got %q", tag)
			}
			if len(cols) < 2 {
				return l.errorf("member line without descriptor")
			}
			ns, err := names(cols[2:])
			if err != nil {
				return err
			}
			docs[1], docs[2] = nil, nil
			isMethod = tag == "m"
			mv = nil
			if cv == nil {
				break
			}
			if isMethod {
				if mv, err = cv.VisitMethod(visitor.NewNames(set, ns...), cols[1]); err != nil {
					return err
				}
				if mv != nil {
					docs[1] = mv
				}
			} else {
				fd, err := cv.VisitField(visitor.NewNames(set, ns...), cols[1])
				if err != nil {
					return err
				}
				docs[1] = fd
			}
		case tinyParam:
			if !isMethod {
				return l.errorf("%q line under a field", tag)
			}
			docs[2] = nil
			switch tag {
			case "p":
				if len(cols) < 2 {
					return l.errorf("parameter line without index")
				}
				index, err := strconv.Atoi(cols[1])
				if err != nil || index < 0 {
					return l.errorf("invalid parameter index %q", cols[1])
				}
				ns, err := names(cols[2:])
				if err != nil {
					return err
				}
				if mv != nil {
					pd, err := mv.VisitParameter(index, visitor.NewNames(set, ns...))
					if err != nil {
						return err
					}
					docs[2] = pd
				}
			case "v":
				// local variables are not modelled
			default:
				return l.errorf("expected parameter line, got %q", tag)
			}
		default:
			return l.errorf("unexpected indentation %d", indent)
		}
		depth = indent
	}
	if err := start(); err != nil {
		return err
	}
	return finish(l, v)
}

// unescapeTiny reverses the Tiny v2 escapes \\ \n \r \t \0.
func unescapeTiny(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// escapeTiny is the inverse of unescapeTiny.
func escapeTiny(s string) string {
	if !strings.ContainsAny(s, "\\\n\r\t\x00") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// TinyV1Parser reads Tiny v1 ("v1\t<ns>..."): flat CLASS, FIELD and METHOD
// rows whose owner is named in the first namespace. Rows are grouped by
// owner before emission.
type TinyV1Parser struct {
	r io.Reader
}

func NewTinyV1Parser(r io.Reader) *TinyV1Parser {
	return &TinyV1Parser{r: r}
}

type tinyV1Member struct {
	names []string
	desc  string
}

type tinyV1Class struct {
	names   []string
	fields  []tinyV1Member
	methods []tinyV1Member
}

func (p *TinyV1Parser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(TinyV1, "", p.r)

	if !l.next() {
		if err := l.err(); err != nil {
			return err
		}
		return &ParseError{Format: TinyV1, Line: 1, Msg: "missing tiny header"}
	}
	header := strings.Split(l.text, "\t")
	if len(header) < 3 || header[0] != "v1" {
		return l.errorf("header must be 'v1\\t<ns>\\t<ns>...'")
	}
	set, err := namespace.NewSet(header[1:]...)
	if err != nil {
		return l.errorf("%v", err)
	}
	n := set.Len()

	byOwner := make(map[string]*tinyV1Class)
	var order []*tinyV1Class
	owner := func(name string) *tinyV1Class {
		c, ok := byOwner[name]
		if !ok {
			c = &tinyV1Class{names: []string{name}}
			byOwner[name] = c
			order = append(order, c)
		}
		return c
	}

	for l.next() {
		if l.text == "" || strings.HasPrefix(l.text, "#") {
			continue
		}
		cols := strings.Split(l.text, "\t")
		switch cols[0] {
		case "CLASS":
			if len(cols) != 1+n {
				return l.errorf("CLASS expects %d names, got %d", n, len(cols)-1)
			}
			c := owner(cols[1])
			c.names = cols[1:]
		case "FIELD", "METHOD":
			if len(cols) != 3+n {
				return l.errorf("%s expects owner, descriptor and %d names, got %d columns", cols[0], n, len(cols)-1)
			}
			c := owner(cols[1])
			m := tinyV1Member{names: cols[3:], desc: cols[2]}
			if cols[0] == "FIELD" {
				c.fields = append(c.fields, m)
			} else {
				c.methods = append(c.methods, m)
			}
		default:
			return l.errorf("unknown row type %q", cols[0])
		}
	}
	if err := l.err(); err != nil {
		return err
	}

	if err := v.VisitStart(set); err != nil {
		return err
	}
	for _, c := range order {
		cv, err := v.VisitClass(visitor.NewNames(set, c.names...))
		if err != nil {
			return err
		}
		if cv == nil {
			continue
		}
		for _, f := range c.fields {
			if _, err := cv.VisitField(visitor.NewNames(set, f.names...), f.desc); err != nil {
				return err
			}
		}
		for _, m := range c.methods {
			if _, err := cv.VisitMethod(visitor.NewNames(set, m.names...), m.desc); err != nil {
				return err
			}
		}
	}
	return v.VisitEnd()
}
