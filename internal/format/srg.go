package format

import (
	"io"
	"strings"

	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

var srgNamespaces = namespace.MustSet(namespace.Obf, namespace.SRG)

// SRGParser reads MCP's SRG files (PK:/CL:/FD:/MD: lines). Members reference
// their owner by obfuscated name and may precede the owner's CL: line, so
// lines are grouped by owner and emitted at the end of input.
type SRGParser struct {
	r io.Reader
}

func NewSRGParser(r io.Reader) *SRGParser {
	return &SRGParser{r: r}
}

type srgMember struct {
	obf, srg, desc string
}

type srgClass struct {
	obf, srg string
	fields   []srgMember
	methods  []srgMember
}

func (p *SRGParser) Parse(v visitor.MappingsVisitor) error {
	l := newLineReader(SRG, "", p.r)

	byObf := make(map[string]*srgClass)
	var order []*srgClass
	owner := func(obf string) *srgClass {
		c, ok := byObf[obf]
		if !ok {
			c = &srgClass{obf: obf}
			byObf[obf] = c
			order = append(order, c)
		}
		return c
	}

	for l.next() {
		line := strings.TrimSpace(l.text)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) < 4 || line[2] != ':' {
			return l.errorf("expected a PK:, CL:, FD: or MD: line")
		}
		tag, fields := line[:3], strings.Fields(line[3:])

		switch tag {
		case "PK:":
			if len(fields) != 2 {
				return l.errorf("PK: expects 2 names, got %d", len(fields))
			}
		case "CL:":
			if len(fields) != 2 {
				return l.errorf("CL: expects 2 names, got %d", len(fields))
			}
			c := owner(fields[0])
			if c.srg == "" {
				c.srg = fields[1]
			}
		case "FD:":
			// FD: a/b srg/Owner/field, or with descriptors: a/b I srg/Owner/field I
			var obfPath, srgPath, desc string
			switch len(fields) {
			case 2:
				obfPath, srgPath = fields[0], fields[1]
			case 4:
				obfPath, desc, srgPath = fields[0], fields[1], fields[2]
			default:
				return l.errorf("FD: expects 2 or 4 tokens, got %d", len(fields))
			}
			ownerObf, name, ok1 := splitOwner(obfPath)
			ownerSrg, srgName, ok2 := splitOwner(srgPath)
			if !ok1 || !ok2 {
				return l.errorf("FD: names must be owner-qualified")
			}
			c := owner(ownerObf)
			if c.srg == "" {
				c.srg = ownerSrg
			}
			c.fields = append(c.fields, srgMember{obf: name, srg: srgName, desc: desc})
		case "MD:":
			if len(fields) != 4 {
				return l.errorf("MD: expects 4 tokens, got %d", len(fields))
			}
			ownerObf, name, ok1 := splitOwner(fields[0])
			ownerSrg, srgName, ok2 := splitOwner(fields[2])
			if !ok1 || !ok2 {
				return l.errorf("MD: names must be owner-qualified")
			}
			if !strings.HasPrefix(fields[1], "(") {
				return l.errorf("MD: invalid descriptor %q", fields[1])
			}
			c := owner(ownerObf)
			if c.srg == "" {
				c.srg = ownerSrg
			}
			c.methods = append(c.methods, srgMember{obf: name, srg: srgName, desc: fields[1]})
		default:
			return l.errorf("unknown SRG tag %q", tag)
		}
	}
	if err := l.err(); err != nil {
		return err
	}

	if err := v.VisitStart(srgNamespaces); err != nil {
		return err
	}
	for _, c := range order {
		cv, err := v.VisitClass(visitor.NewNames(srgNamespaces, c.obf, c.srg))
		if err != nil {
			return err
		}
		if cv == nil {
			continue
		}
		for _, f := range c.fields {
			if _, err := cv.VisitField(visitor.NewNames(srgNamespaces, f.obf, f.srg), f.desc); err != nil {
				return err
			}
		}
		for _, m := range c.methods {
			if _, err := cv.VisitMethod(visitor.NewNames(srgNamespaces, m.obf, m.srg), m.desc); err != nil {
				return err
			}
		}
	}
	return v.VisitEnd()
}

// splitOwner splits "owner/path/member" at the last '/'.
func splitOwner(path string) (owner, name string, ok bool) {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}
