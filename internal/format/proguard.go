package format

import (
	"io"
	"strings"

	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

var proguardNamespaces = namespace.MustSet(namespace.Obf, namespace.Mapped)

// ProguardParser reads Mojang's Proguard/R8 mapping.txt. Types in member
// lines are written in mapped names, so the whole file is read before any
// event is emitted and descriptors are translated to obfuscated names.
type ProguardParser struct {
	r io.Reader
}

func NewProguardParser(r io.Reader) *ProguardParser {
	return &ProguardParser{r: r}
}

type proguardMember struct {
	mapped string
	obf    string
	desc   string // mapped names
}

type proguardClass struct {
	mapped  string
	obf     string
	skip    bool
	fields  []proguardMember
	methods []proguardMember
	seen    map[string]bool
}

func (p *ProguardParser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(Proguard, "", p.r)

	var classes []*proguardClass
	var current *proguardClass
	for l.next() {
		line := l.text
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			if !strings.HasSuffix(trimmed, ":") {
				return l.errorf("class line must end with ':'")
			}
			mapped, obf, ok := splitArrow(strings.TrimSuffix(trimmed, ":"))
			if !ok {
				return l.errorf("expected 'name -> obf:'")
			}
			mapped = strings.ReplaceAll(mapped, ".", "/")
			current = &proguardClass{
				mapped: mapped,
				obf:    strings.ReplaceAll(obf, ".", "/"),
				skip:   mapped == "package-info" || strings.HasSuffix(mapped, "/package-info"),
				seen:   make(map[string]bool),
			}
			classes = append(classes, current)
			continue
		}

		if current == nil {
			return l.errorf("member line before any class")
		}
		left, obf, ok := splitArrow(trimmed)
		if !ok {
			return l.errorf("expected 'member -> obf'")
		}
		if current.skip {
			continue
		}

		if strings.Contains(left, "(") {
			m, inlined, err := parseProguardMethod(left)
			if err != "" {
				return l.errorf("%s", err)
			}
			// owner-qualified names describe inlined frames of other classes
			if inlined {
				continue
			}
			m.obf = obf
			if key := m.mapped + m.desc; !current.seen[key] {
				current.seen[key] = true
				current.methods = append(current.methods, m)
			}
			continue
		}

		parts := strings.Fields(left)
		if len(parts) != 2 {
			return l.errorf("expected 'type name -> obf'")
		}
		f := proguardMember{mapped: parts[1], obf: obf, desc: mappings.TypeToDescriptor(parts[0])}
		if key := "F" + f.mapped; !current.seen[key] {
			current.seen[key] = true
			current.fields = append(current.fields, f)
		}
	}
	if err := l.err(); err != nil {
		return err
	}

	toObf := make(map[string]string, len(classes))
	for _, c := range classes {
		toObf[c.mapped] = c.obf
	}
	lookup := mappings.MapLookup(toObf)

	if err := v.VisitStart(proguardNamespaces); err != nil {
		return err
	}
	for _, c := range classes {
		if c.skip {
			continue
		}
		cv, err := v.VisitClass(visitor.NewNames(proguardNamespaces, c.obf, c.mapped))
		if err != nil {
			return err
		}
		if cv == nil {
			continue
		}
		for _, f := range c.fields {
			desc := mappings.RemapDescriptor(f.desc, lookup)
			if _, err := cv.VisitField(visitor.NewNames(proguardNamespaces, f.obf, f.mapped), desc); err != nil {
				return err
			}
		}
		for _, m := range c.methods {
			desc := mappings.RemapDescriptor(m.desc, lookup)
			if _, err := cv.VisitMethod(visitor.NewNames(proguardNamespaces, m.obf, m.mapped), desc); err != nil {
				return err
			}
		}
	}
	return v.VisitEnd()
}

func splitArrow(s string) (left, right string, ok bool) {
	i := strings.Index(s, " -> ")
	if i < 0 {
		return "", "", false
	}
	left = strings.TrimSpace(s[:i])
	right = strings.TrimSpace(s[i+4:])
	return left, right, left != "" && right != ""
}

// parseProguardMethod handles "[a:b:]ret name(args)[:c:d]".
func parseProguardMethod(s string) (m proguardMember, inlined bool, errMsg string) {
	s = stripLineNumbers(s)
	open := strings.IndexByte(s, '(')
	closeIdx := strings.LastIndexByte(s, ')')
	if open < 0 || closeIdx < open {
		return m, false, "malformed method signature"
	}

	head := strings.Fields(s[:open])
	if len(head) != 2 {
		return m, false, "expected 'returnType name(args)'"
	}
	name := head[1]
	if strings.Contains(name, ".") {
		return m, true, ""
	}

	var desc strings.Builder
	desc.WriteByte('(')
	if args := strings.TrimSpace(s[open+1 : closeIdx]); args != "" {
		for _, arg := range strings.Split(args, ",") {
			desc.WriteString(mappings.TypeToDescriptor(arg))
		}
	}
	desc.WriteByte(')')
	desc.WriteString(mappings.TypeToDescriptor(head[0]))

	return proguardMember{mapped: name, desc: desc.String()}, false, ""
}

// stripLineNumbers removes the leading "12:34:" and trailing ":56:78" ranges.
func stripLineNumbers(s string) string {
	for i := 0; i < 2; i++ {
		colon := strings.IndexByte(s, ':')
		if colon <= 0 || !isDigits(s[:colon]) {
			break
		}
		s = s[colon+1:]
	}
	if closeIdx := strings.LastIndexByte(s, ')'); closeIdx >= 0 {
		s = s[:closeIdx+1]
	}
	return s
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
