// Package format reads and writes the text mapping formats: Proguard, SRG,
// TSRG, TSRG2, Tiny v1, Tiny v2 and Enigma. Every parser drives a
// visitor.MappingsVisitor; the writers are visitors themselves.
//
// Parsers fail on the first structurally invalid line with a *ParseError and
// do not call VisitEnd in that case. Enigma is the exception: lines whose
// parent cannot be resolved are skipped (or synthesized) per EnigmaOptions.
package format

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
	"mapdex/internal/visitor"
)

// Format identifies a mapping file format.
type Format string

const (
	Proguard Format = "proguard"
	SRG      Format = "srg"
	TSRG     Format = "tsrg"
	TSRG2    Format = "tsrg2"
	TinyV1   Format = "tiny_v1"
	TinyV2   Format = "tiny_v2"
	Enigma   Format = "enigma"
)

// All lists the supported formats.
var All = []Format{Proguard, SRG, TSRG, TSRG2, TinyV1, TinyV2, Enigma}

// ParseFormat resolves a format name, accepting a few common spellings.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "proguard", "mojang", "mojmap":
		return Proguard, nil
	case "srg":
		return SRG, nil
	case "tsrg", "tsrg1":
		return TSRG, nil
	case "tsrg2":
		return TSRG2, nil
	case "tiny_v1", "tiny1", "tinyv1":
		return TinyV1, nil
	case "tiny_v2", "tiny2", "tinyv2", "tiny":
		return TinyV2, nil
	case "enigma":
		return Enigma, nil
	}
	return "", fmt.Errorf("unknown mappings format %q", name)
}

// Source is the mappings.Source tag a container parsed from f carries.
func (f Format) Source() mappings.Source {
	switch f {
	case Proguard:
		return mappings.SourceProguard
	case SRG:
		return mappings.SourceSRG
	case TSRG:
		return mappings.SourceTSRG
	case TSRG2:
		return mappings.SourceTSRG2
	case TinyV1:
		return mappings.SourceTinyV1
	case TinyV2:
		return mappings.SourceTinyV2
	case Enigma:
		return mappings.SourceEnigma
	}
	return mappings.Source(f)
}

// FixedNamespaces returns the namespaces of formats that do not declare them
// in a header. Header-driven formats return false.
func (f Format) FixedNamespaces() (namespace.Set, bool) {
	switch f {
	case Proguard:
		return proguardNamespaces, true
	case SRG, TSRG:
		return srgNamespaces, true
	case Enigma:
		return defaultEnigmaNamespaces, true
	}
	return namespace.Set{}, false
}

// Parser drives a visitor over one mappings input.
type Parser interface {
	Parse(v visitor.MappingsVisitor) error
}

// Options tunes parsers that have knobs.
type Options struct {
	Enigma EnigmaOptions
}

// NewParser returns the parser for f reading r.
func NewParser(f Format, r io.Reader, opts Options) (Parser, error) {
	switch f {
	case Proguard:
		return NewProguardParser(r), nil
	case SRG:
		return NewSRGParser(r), nil
	case TSRG:
		return NewTSRGParser(r), nil
	case TSRG2:
		return NewTSRG2Parser(r), nil
	case TinyV1:
		return NewTinyV1Parser(r), nil
	case TinyV2:
		return NewTinyV2Parser(r), nil
	case Enigma:
		p := NewEnigmaParser(opts.Enigma)
		if err := p.AddFile("", r); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown mappings format %q", f)
}

// Parse reads r as f and drives v.
func Parse(f Format, r io.Reader, v visitor.MappingsVisitor, opts Options) error {
	p, err := NewParser(f, r, opts)
	if err != nil {
		return err
	}
	return p.Parse(v)
}

// Detect guesses the format from the first non-blank line of a file.
func Detect(firstLine string) (Format, bool) {
	line := strings.TrimRight(firstLine, "\r\n")
	switch {
	case strings.HasPrefix(line, "tiny\t2\t"):
		return TinyV2, true
	case strings.HasPrefix(line, "v1\t"):
		return TinyV1, true
	case strings.HasPrefix(line, "tsrg2 "):
		return TSRG2, true
	case strings.HasPrefix(line, "PK: "), strings.HasPrefix(line, "CL: "),
		strings.HasPrefix(line, "FD: "), strings.HasPrefix(line, "MD: "):
		return SRG, true
	case strings.HasPrefix(line, "CLASS "), strings.HasPrefix(line, "CLASS\t"):
		return Enigma, true
	case strings.HasPrefix(line, "#"), strings.Contains(line, " -> "):
		return Proguard, true
	}
	if fields := strings.Fields(line); len(fields) == 2 && !strings.HasPrefix(line, "\t") {
		return TSRG, true
	}
	return "", false
}

// DetectReader peeks at br and detects the format without consuming input.
func DetectReader(br *bufio.Reader) (Format, error) {
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", err
	}
	for _, line := range bytes.Split(head, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if f, ok := Detect(string(line)); ok {
			return f, nil
		}
		break
	}
	return "", fmt.Errorf("unrecognized mappings format")
}

// ParseError reports a structurally invalid line.
type ParseError struct {
	Format Format
	File   string
	Line   int
	Text   string
	Msg    string
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	if e.Text == "" {
		return fmt.Sprintf("%s: %s: %s", e.Format, loc, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s: %q", e.Format, loc, e.Msg, e.Text)
}

const maxLineSize = 4 * 1024 * 1024

// lineReader yields lines with the trailing CR stripped and tracks the line number.
type lineReader struct {
	format Format
	file   string
	sc     *bufio.Scanner
	num    int
	text   string
}

func newLineReader(f Format, file string, r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineReader{format: f, file: file, sc: sc}
}

func (l *lineReader) next() bool {
	if !l.sc.Scan() {
		return false
	}
	l.num++
	l.text = strings.TrimSuffix(l.sc.Text(), "\r")
	return true
}

func (l *lineReader) err() error {
	if err := l.sc.Err(); err != nil {
		return fmt.Errorf("%s: read failed after line %d: %w", l.format, l.num, err)
	}
	return nil
}

func (l *lineReader) errorf(format string, args ...interface{}) *ParseError {
	return &ParseError{Format: l.format, File: l.file, Line: l.num, Text: l.text, Msg: fmt.Sprintf(format, args...)}
}

// indentOf counts leading tabs.
func indentOf(line string) int {
	n := 0
	for n < len(line) && line[n] == '\t' {
		n++
	}
	return n
}

// finish surfaces read errors, then calls VisitEnd.
func finish(l *lineReader, v visitor.MappingsVisitor) error {
	if err := l.err(); err != nil {
		return err
	}
	return v.VisitEnd()
}
