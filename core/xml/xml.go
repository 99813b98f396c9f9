// Package xml wraps xmlquery and xpath for reading specimen batch files.
//
// Documents are checked for well-formedness with entity expansion disabled
// before they reach xmlquery, so batch files cannot pull in external
// entities.
package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node is an element of a Document.
type Node struct {
	node *xmlquery.Node
}

// Parse checks data for well-formedness and parses it into a Document.
func Parse(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Validate reports the first well-formedness error in data.
func Validate(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line, _ := decoder.InputPos()
			return fmt.Errorf("malformed XML at line %d: %w", line, err)
		}
	}
}

// Root returns the document element.
func (d *Document) Root() *Node {
	if d == nil || d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// XPath executes an XPath query and returns matching nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes := xmlquery.QuerySelectorAll(d.root, compiled)
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

// Name returns the element name.
func (n *Node) Name() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.Data
}

// Text returns the text content of the node and its descendants.
func (n *Node) Text() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Attributes returns all attributes of the node.
func (n *Node) Attributes() map[string]string {
	if n == nil || n.node == nil {
		return nil
	}
	attrs := make(map[string]string, len(n.node.Attr))
	for _, attr := range n.node.Attr {
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

// Attr returns the value of a specific attribute.
func (n *Node) Attr(name string) string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.SelectAttr(name)
}

// HasAttr reports whether the node carries the named attribute.
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.node == nil {
		return false
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == name {
			return true
		}
	}
	return false
}
