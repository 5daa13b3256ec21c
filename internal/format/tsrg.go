package format

import (
	"io"
	"strconv"
	"strings"

	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

// TSRGParser reads headerless TSRG v1: "obf srg" class lines with
// tab-indented field ("obf srg") and method ("obf desc srg") lines.
type TSRGParser struct {
	r io.Reader
}

func NewTSRGParser(r io.Reader) *TSRGParser {
	return &TSRGParser{r: r}
}

func (p *TSRGParser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(TSRG, "", p.r)
	if err := v.VisitStart(srgNamespaces); err != nil {
		return err
	}

	var cv visitor.ClassVisitor
	inClass := false
	for l.next() {
		if strings.TrimSpace(l.text) == "" || strings.HasPrefix(l.text, "#") {
			continue
		}
		indent := indentOf(l.text)
		fields := strings.Split(l.text[indent:], " ")

		switch indent {
		case 0:
			if len(fields) != 2 {
				return l.errorf("class line expects 2 names, got %d", len(fields))
			}
			// package lines
			if strings.HasSuffix(fields[0], "/") {
				inClass, cv = false, nil
				continue
			}
			var err error
			if cv, err = v.VisitClass(visitor.NewNames(srgNamespaces, fields...)); err != nil {
				return err
			}
			inClass = true
		case 1:
			if !inClass {
				return l.errorf("member line outside a class")
			}
			if cv == nil {
				continue
			}
			switch len(fields) {
			case 2:
				if _, err := cv.VisitField(visitor.NewNames(srgNamespaces, fields...), ""); err != nil {
					return err
				}
			case 3:
				if _, err := cv.VisitMethod(visitor.NewNames(srgNamespaces, fields[0], fields[2]), fields[1]); err != nil {
					return err
				}
			default:
				return l.errorf("member line expects 2 or 3 tokens, got %d", len(fields))
			}
		default:
			return l.errorf("unexpected indentation %d", indent)
		}
	}
	return finish(l, v)
}

// TSRG2Parser reads TSRG v2: a "tsrg2 ns0 ns1 ..." header followed by class,
// member (indent 1) and parameter (indent 2) lines.
type TSRG2Parser struct {
	r io.Reader
}

func NewTSRG2Parser(r io.Reader) *TSRG2Parser {
	return &TSRG2Parser{r: r}
}

func (p *TSRG2Parser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(TSRG2, "", p.r)

	if !l.next() {
		if err := l.err(); err != nil {
			return err
		}
		return &ParseError{Format: TSRG2, Line: 1, Msg: "missing tsrg2 header"}
	}
	header := strings.Fields(l.text)
	if len(header) < 3 || header[0] != "tsrg2" {
		return l.errorf("header must be 'tsrg2 <ns> <ns>...'")
	}
	set, err := namespace.NewSet(header[1:]...)
	if err != nil {
		return l.errorf("%v", err)
	}
	n := set.Len()
	if err := v.VisitStart(set); err != nil {
		return err
	}

	var (
		cv       visitor.ClassVisitor
		mv       visitor.MethodVisitor
		inClass  bool
		inMethod bool
	)
	for l.next() {
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		indent := indentOf(l.text)
		fields := strings.Split(l.text[indent:], " ")

		switch indent {
		case 0:
			inMethod, mv = false, nil
			if len(fields) != n {
				return l.errorf("class line expects %d names, got %d", n, len(fields))
			}
			if strings.HasSuffix(fields[0], "/") {
				inClass, cv = false, nil
				continue
			}
			if cv, err = v.VisitClass(visitor.NewNames(set, fields...)); err != nil {
				return err
			}
			inClass = true
		case 1:
			if !inClass {
				return l.errorf("member line outside a class")
			}
			inMethod, mv = false, nil
			switch {
			case len(fields) == n:
				if cv != nil {
					if _, err := cv.VisitField(visitor.NewNames(set, fields...), ""); err != nil {
						return err
					}
				}
			case len(fields) == n+1:
				names := append([]string{fields[0]}, fields[2:]...)
				desc := fields[1]
				if !strings.HasPrefix(desc, "(") {
					if cv != nil {
						if _, err := cv.VisitField(visitor.NewNames(set, names...), desc); err != nil {
							return err
						}
					}
					continue
				}
				inMethod = true
				if cv != nil {
					if mv, err = cv.VisitMethod(visitor.NewNames(set, names...), desc); err != nil {
						return err
					}
				}
			default:
				return l.errorf("member line expects %d or %d tokens, got %d", n, n+1, len(fields))
			}
		case 2:
			if !inMethod {
				return l.errorf("parameter line outside a method")
			}
			if len(fields) == 1 && fields[0] == "static" {
				continue
			}
			if len(fields) != n+1 {
				return l.errorf("parameter line expects %d tokens, got %d", n+1, len(fields))
			}
			index, err := strconv.Atoi(fields[0])
			if err != nil || index < 0 {
				return l.errorf("invalid parameter index %q", fields[0])
			}
			if mv != nil {
				if _, err := mv.VisitParameter(index, visitor.NewNames(set, fields[1:]...)); err != nil {
					return err
				}
			}
		default:
			return l.errorf("unexpected indentation %d", indent)
		}
	}
	return finish(l, v)
}
