package provision

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// The provision fragments carry a tag vocabulary that varies by legislation
// type and a mass of authoring-tool attributes, so they are parsed into a
// generic mutable tree rather than fixed structs: the processor needs to
// filter attributes, splice elements, and serialize the result back to
// markup.

// NodeKind discriminates tree nodes.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
)

// Attr is a single element attribute, with the name reduced to its local
// part.
type Attr struct {
	Name  string
	Value string
}

// XMLNode is one node of a parsed fragment. Element nodes carry a local
// name, attributes and children; text nodes carry only Text.
type XMLNode struct {
	Kind     NodeKind
	Name     string
	Attrs    []Attr
	Text     string
	Children []*XMLNode
}

// ParseTree parses an XML payload into a generic tree rooted at a synthetic
// document node. Character data is preserved as text children so mixed
// content round-trips.
func ParseTree(payload []byte) (*XMLNode, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(payload)))
	decoder.Strict = false

	root := &XMLNode{Kind: ElementNode, Name: ""}
	stack := []*XMLNode{root}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse fragment XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			element := &XMLNode{Kind: ElementNode, Name: t.Name.Local}
			for _, attr := range t.Attr {
				if attr.Name.Local == "xmlns" || attr.Name.Space == "xmlns" {
					continue
				}
				element.Attrs = append(element.Attrs, Attr{Name: attr.Name.Local, Value: attr.Value})
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, element)
			stack = append(stack, element)

		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			text := string(t)
			if strings.TrimSpace(text) == "" {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &XMLNode{Kind: TextNode, Text: text})
		}
	}

	if len(root.Children) == 0 {
		return nil, fmt.Errorf("fragment XML has no root element")
	}
	return root, nil
}

// Find returns the first element with the given local name in depth-first
// order, or nil.
func (node *XMLNode) Find(name string) *XMLNode {
	if node.Kind == ElementNode && node.Name == name {
		return node
	}
	for _, child := range node.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll collects every element with the given local name in depth-first
// order.
func (node *XMLNode) FindAll(name string) []*XMLNode {
	var found []*XMLNode
	node.walk(func(candidate *XMLNode) {
		if candidate.Kind == ElementNode && candidate.Name == name {
			found = append(found, candidate)
		}
	})
	return found
}

func (node *XMLNode) walk(visit func(*XMLNode)) {
	visit(node)
	for _, child := range node.Children {
		child.walk(visit)
	}
}

// Attr returns the value of the named attribute, matching case-insensitively
// on the local name.
func (node *XMLNode) Attr(name string) string {
	for _, attr := range node.Attrs {
		if strings.EqualFold(attr.Name, name) {
			return attr.Value
		}
	}
	return ""
}

// DeepText returns the concatenated text content of the subtree with
// whitespace collapsed.
func (node *XMLNode) DeepText() string {
	var builder strings.Builder
	node.walk(func(candidate *XMLNode) {
		if candidate.Kind == TextNode {
			builder.WriteString(candidate.Text)
			builder.WriteString(" ")
		}
	})
	return strings.Join(strings.Fields(builder.String()), " ")
}

// Serialize renders the node's children back to markup text.
func (node *XMLNode) Serialize() string {
	var builder strings.Builder
	for _, child := range node.Children {
		serializeNode(child, &builder)
	}
	return builder.String()
}

func serializeNode(node *XMLNode, builder *strings.Builder) {
	if node.Kind == TextNode {
		builder.WriteString(escapeText(node.Text))
		return
	}

	builder.WriteString("<" + node.Name)
	for _, attr := range node.Attrs {
		builder.WriteString(" " + attr.Name + `="` + escapeText(attr.Value) + `"`)
	}
	if len(node.Children) == 0 {
		builder.WriteString("/>")
		return
	}
	builder.WriteString(">")
	for _, child := range node.Children {
		serializeNode(child, builder)
	}
	builder.WriteString("</" + node.Name + ">")
}

func escapeText(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(text)
}
