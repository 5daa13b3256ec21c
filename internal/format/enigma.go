package format

import (
	"io"
	"strconv"
	"strings"

	"mapdex/internal/logging"
	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
	"mapdex/internal/paths"
	"mapdex/internal/visitor"
)

var defaultEnigmaNamespaces = namespace.MustSet(namespace.Intermediary, namespace.Named)

// EnigmaOptions controls how lines with an unresolvable parent are handled.
// Such lines are always skipped unless IgnoreErrors is set, in which case an
// orphan CLASS becomes a top-level class and an orphan FIELD or METHOD
// attaches to the nearest enclosing class. ShowErrors logs every orphan.
type EnigmaOptions struct {
	ShowErrors   bool
	IgnoreErrors bool
	Logger       *logging.Logger
	// Namespaces names the two columns; defaults to intermediary, named.
	Namespaces []string
}

type enigmaKind int

const (
	enigmaClass enigmaKind = iota
	enigmaField
	enigmaMethod
	enigmaArg
)

type enigmaNode struct {
	kind     enigmaKind
	name     string
	mapped   string
	desc     string
	index    int
	docs     []string
	members  []*enigmaNode
	nested   []*enigmaNode
	children []*enigmaNode // method args
}

func (n *enigmaNode) optimum() string {
	if n.mapped != "" {
		return n.mapped
	}
	return n.name
}

// EnigmaParser reads Enigma .mapping files. Several files (one per top-level
// class, as in a mappings directory) can be added before Parse emits them as
// one stream.
type EnigmaParser struct {
	opts    EnigmaOptions
	classes []*enigmaNode
	skipped int
}

func NewEnigmaParser(opts EnigmaOptions) *EnigmaParser {
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	return &EnigmaParser{opts: opts}
}

// Skipped returns how many orphan lines were dropped so far.
func (p *EnigmaParser) Skipped() int { return p.skipped }

// AddFile parses one .mapping file into the pending tree.
func (p *EnigmaParser) AddFile(name string, r io.Reader) error {
	l := newLineReader(Enigma, name, r)

	// stack[d] is the node opened at indent d; nil when that line was skipped
	var stack []*enigmaNode
	for l.next() {
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		d := indentOf(l.text)
		body := l.text[d:]
		if strings.HasPrefix(body, "#") {
			continue
		}
		tokens := strings.Fields(body)

		var parent *enigmaNode
		if d > 0 && d <= len(stack) {
			parent = stack[d-1]
		}
		if d < len(stack) {
			stack = stack[:d]
		}
		for len(stack) < d {
			stack = append(stack, nil)
		}

		var node *enigmaNode
		switch tokens[0] {
		case "CLASS":
			if len(tokens) < 2 || len(tokens) > 3 {
				return l.errorf("CLASS expects 1 or 2 names, got %d", len(tokens)-1)
			}
			node = &enigmaNode{kind: enigmaClass, name: tokens[1]}
			if len(tokens) == 3 {
				node.mapped = tokens[2]
			}
			switch {
			case d == 0:
				p.classes = append(p.classes, node)
			case parent != nil && parent.kind == enigmaClass:
				nestUnder(parent, node)
				parent.nested = append(parent.nested, node)
			case p.opts.IgnoreErrors:
				p.orphan(l, name, true)
				p.classes = append(p.classes, node)
			default:
				p.orphan(l, name, false)
				node = nil
			}
		case "FIELD", "METHOD":
			if len(tokens) < 3 || len(tokens) > 4 {
				return l.errorf("%s expects a name, a descriptor and an optional mapping", tokens[0])
			}
			kind := enigmaField
			if tokens[0] == "METHOD" {
				kind = enigmaMethod
			}
			node = &enigmaNode{kind: kind, name: tokens[1]}
			if err := splitEnigmaMember(node, tokens[2:]); err != "" {
				return l.errorf("%s", err)
			}

			owner := parent
			if owner == nil || owner.kind != enigmaClass {
				owner = nil
				if p.opts.IgnoreErrors {
					owner = nearestClass(stack)
				}
				p.orphan(l, name, owner != nil)
			}
			if owner == nil {
				node = nil
			} else {
				owner.members = append(owner.members, node)
			}
		case "ARG":
			if len(tokens) != 3 {
				return l.errorf("ARG expects an index and a name")
			}
			index, err := strconv.Atoi(tokens[1])
			if err != nil || index < 0 {
				return l.errorf("invalid ARG index %q", tokens[1])
			}
			if parent == nil || parent.kind != enigmaMethod {
				p.orphan(l, name, false)
				break
			}
			node = &enigmaNode{kind: enigmaArg, index: index, mapped: tokens[2]}
			parent.children = append(parent.children, node)
		case "COMMENT":
			if parent == nil {
				p.orphan(l, name, false)
				break
			}
			text := strings.TrimPrefix(strings.TrimPrefix(body, "COMMENT"), " ")
			parent.docs = append(parent.docs, text)
		default:
			return l.errorf("unknown keyword %q", tokens[0])
		}
		stack = append(stack, node)
	}
	return l.err()
}

// nestUnder qualifies a nested class with its parent's names.
func nestUnder(parent, node *enigmaNode) {
	if !strings.HasPrefix(node.name, parent.name+"$") {
		node.name = parent.name + "$" + node.name
	}
	if node.mapped != "" && !strings.Contains(node.mapped, "/") {
		node.mapped = parent.optimum() + "$" + node.mapped
	}
}

// splitEnigmaMember fills desc and mapped from "desc", "mapped desc" or "desc mapped".
func splitEnigmaMember(n *enigmaNode, rest []string) string {
	valid := func(s string) bool {
		if n.kind == enigmaMethod {
			return mappings.IsMethodDescriptor(s)
		}
		return mappings.IsFieldDescriptor(s)
	}
	switch len(rest) {
	case 1:
		n.desc = rest[0]
	case 2:
		switch {
		case valid(rest[1]):
			n.mapped, n.desc = rest[0], rest[1]
		case valid(rest[0]):
			n.desc, n.mapped = rest[0], rest[1]
		default:
			return "no valid descriptor in " + strings.Join(rest, " ")
		}
	}
	return ""
}

func nearestClass(stack []*enigmaNode) *enigmaNode {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] != nil && stack[i].kind == enigmaClass {
			return stack[i]
		}
	}
	return nil
}

func (p *EnigmaParser) orphan(l *lineReader, file string, kept bool) {
	if !kept {
		p.skipped++
	}
	if !p.opts.ShowErrors {
		return
	}
	msg := "enigma line has no resolvable parent, skipped"
	if kept {
		msg = "enigma line has no resolvable parent, reattached"
	}
	fields := map[string]interface{}{"line": l.num, "text": strings.TrimSpace(l.text)}
	if file != "" {
		fields["file"] = file
		fields["class"] = paths.EnigmaClassName(file)
	}
	p.opts.Logger.Warn(msg, fields)
}

// Parse emits every added file as one stream: each class, then its members,
// then its nested classes.
func (p *EnigmaParser) Parse(v visitor.MappingsVisitor) error {
	set := defaultEnigmaNamespaces
	if len(p.opts.Namespaces) > 0 {
		var err error
		if set, err = namespace.NewSet(p.opts.Namespaces...); err != nil {
			return err
		}
		if set.Len() != 2 {
			return &ParseError{Format: Enigma, Msg: "enigma has exactly two namespaces"}
		}
	}

	if err := v.VisitStart(set); err != nil {
		return err
	}
	for _, c := range p.classes {
		if err := emitEnigmaClass(v, set, c); err != nil {
			return err
		}
	}
	return v.VisitEnd()
}

func emitEnigmaClass(v visitor.MappingsVisitor, set namespace.Set, c *enigmaNode) error {
	cv, err := v.VisitClass(visitor.NewNames(set, c.name, c.mapped))
	if err != nil {
		return err
	}
	if cv != nil {
		if err := emitDocs(cv, c.docs); err != nil {
			return err
		}
		for _, m := range c.members {
			names := visitor.NewNames(set, m.name, m.mapped)
			if m.kind == enigmaField {
				dv, err := cv.VisitField(names, m.desc)
				if err != nil {
					return err
				}
				if err := emitDocs(dv, m.docs); err != nil {
					return err
				}
				continue
			}
			mv, err := cv.VisitMethod(names, m.desc)
			if err != nil {
				return err
			}
			if mv == nil {
				continue
			}
			if err := emitDocs(mv, m.docs); err != nil {
				return err
			}
			for _, arg := range m.children {
				dv, err := mv.VisitParameter(arg.index, visitor.NewNames(set, "", arg.mapped))
				if err != nil {
					return err
				}
				if err := emitDocs(dv, arg.docs); err != nil {
					return err
				}
			}
		}
	}
	for _, nested := range c.nested {
		if err := emitEnigmaClass(v, set, nested); err != nil {
			return err
		}
	}
	return nil
}

func emitDocs(d visitor.DocsVisitor, docs []string) error {
	if d == nil || len(docs) == 0 {
		return nil
	}
	return d.VisitDocs(strings.Join(docs, "\n"))
}
