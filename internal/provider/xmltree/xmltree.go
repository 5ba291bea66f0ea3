// Package xmltree turns an XML document into one object per element.
//
// Every element becomes an object of type "<name>_xml_node" with:
//
//   - tag: the element name
//   - attributes: a map of the element's attributes, which are also copied
//     to top-level properties
//   - children: a link selecting the nodes whose parent is this one
//   - parent: a link to the parent node (absent on the root)
//   - value: the trimmed text, for elements with text and no child elements
//   - <child tag>: a link to the child, for each child tag occurring once
//
// Ids are "xml_" plus the element's sanitized path. Repeated sibling tags
// get a 1-based "-N" suffix. The root object takes the caller's root id
// when one is given.
package xmltree

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
	"github.com/roach88/sap/internal/provider"
)

// Node is a parsed XML element.
type Node struct {
	Tag      string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Parse reads a document and returns its root element. Namespaces are
// dropped from tag and attribute names.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("parse xml: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("parse xml: no root element")
	}
	return root, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_/-]`)
	underscores = regexp.MustCompile(`_+`)
	leading     = regexp.MustCompile(`^[a-zA-Z_]`)
)

// SanitizeID maps an element path to an id fragment: characters outside
// [a-zA-Z0-9_/-] become underscores, runs of underscores collapse, and a
// result not starting with a letter or underscore gets an "xml_" prefix.
func SanitizeID(path string) string {
	s := unsafeChars.ReplaceAllString(path, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "xml_root"
	}
	if !leading.MatchString(s) {
		s = "xml_" + s
	}
	return s
}

// Options control Convert.
type Options struct {
	// Source is stamped on every object.
	Source string

	// TypeName prefixes the node type: "<TypeName>_xml_node".
	TypeName string

	// RootID, when set, replaces the root element's generated id.
	RootID string
}

// NodeType returns the object type Convert assigns for typeName.
func NodeType(typeName string) string {
	return typeName + "_xml_node"
}

// Convert flattens the tree rooted at root into objects, parents before
// children in document order.
func Convert(root *Node, opts Options) ([]model.Object, error) {
	c := converter{typ: NodeType(opts.TypeName), source: opts.Source}
	id := "xml_" + SanitizeID(root.Tag)
	if opts.RootID != "" {
		id = opts.RootID
	}
	if err := c.walk(root, root.Tag, id, ""); err != nil {
		return nil, err
	}
	return c.out, nil
}

type converter struct {
	typ    string
	source string
	out    []model.Object
}

func (c *converter) walk(n *Node, path, id, parentID string) error {
	childPaths := childPaths(n, path)

	props := make(map[string]model.Value)

	counts := tagCounts(n)
	for i, child := range n.Children {
		if counts[child.Tag] != 1 {
			continue
		}
		childID := "xml_" + SanitizeID(childPaths[i])
		props[child.Tag] = c.link(fmt.Sprintf("%s#'%s'", c.typ, childID), child.Tag)
	}

	attrs := model.Map{}
	for _, a := range n.Attrs {
		props[a.Name.Local] = model.String(a.Value)
		attrs[a.Name.Local] = model.String(a.Value)
	}

	props["tag"] = model.String(n.Tag)
	props["attributes"] = attrs
	props["children"] = c.link(fmt.Sprintf("%s[.parent.# == '%s']", c.typ, id), "Children")
	if parentID != "" {
		props["parent"] = c.link(fmt.Sprintf("%s#'%s'", c.typ, parentID), parentID)
	}
	if n.Text != "" && len(n.Children) == 0 {
		props["value"] = model.String(n.Text)
	}

	obj, err := model.MakeObject(id, []string{c.typ}, c.source, props)
	if err != nil {
		return fmt.Errorf("element %s: %w", path, err)
	}
	c.out = append(c.out, obj)

	for i, child := range n.Children {
		if err := c.walk(child, childPaths[i], "xml_"+SanitizeID(childPaths[i]), id); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) link(query, label string) model.Value {
	return model.Link{Query: query, Label: label}
}

func tagCounts(n *Node) map[string]int {
	counts := make(map[string]int, len(n.Children))
	for _, child := range n.Children {
		counts[child.Tag]++
	}
	return counts
}

// childPaths returns the path of every child of n, adding a 1-based index
// to tags that repeat among the siblings.
func childPaths(n *Node, path string) []string {
	counts := tagCounts(n)
	seen := make(map[string]int, len(counts))
	out := make([]string, len(n.Children))
	for i, child := range n.Children {
		p := path + "/" + child.Tag
		if counts[child.Tag] > 1 {
			seen[child.Tag]++
			p = fmt.Sprintf("%s-%d", p, seen[child.Tag])
		}
		out[i] = p
	}
	return out
}

// Provider reads an XML file on every fetch. It does not lazy-load.
type Provider struct {
	Path string
	Meta provider.Info
	Opts Options
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Func{Meta: p.Meta}.Info()
}

// Fetch implements provider.Provider.
func (p *Provider) Fetch(ctx context.Context) ([]model.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("xml source: %w", err)
	}
	defer f.Close()

	root, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("xml source %s: %w", p.Path, err)
	}
	return Convert(root, p.Opts)
}

// Query implements provider.Provider.
func (p *Provider) Query() lazyload.QueryFunc {
	return nil
}
