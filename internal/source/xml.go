package source

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Element is a parsed XML element with its direct text and child elements.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Get returns the first child with the given tag, or nil.
func (e *Element) Get(tag string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// GetAll returns every child with the given tag.
func (e *Element) GetAll(tag string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// TextOf returns the trimmed text of e, "" for nil.
func (e *Element) TextOf() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text)
}

// ParseXML reads a document and returns its root element.
func ParseXML(data []byte) (*Element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var root *Element
	var stack []*Element
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local}
			if len(t.Attr) > 0 {
				el.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					el.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode XML: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("decode XML: no root element")
	}
	return root, nil
}

// MavenVersions lists the versions of a maven-metadata.xml document in
// declaration order, plus its declared release (or latest) version.
func MavenVersions(data []byte) ([]string, string, error) {
	root, err := ParseXML(data)
	if err != nil {
		return nil, "", err
	}
	if root.Tag != "metadata" {
		return nil, "", fmt.Errorf("maven metadata: unexpected root <%s>", root.Tag)
	}

	versioning := root.Get("versioning")
	var versions []string
	for _, v := range versioning.Get("versions").GetAll("version") {
		if s := v.TextOf(); s != "" {
			versions = append(versions, s)
		}
	}

	release := versioning.Get("release").TextOf()
	if release == "" {
		release = versioning.Get("latest").TextOf()
	}
	return versions, release, nil
}
