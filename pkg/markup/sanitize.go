// Package markup provides pure HTML transforms shared by the content
// retriever and the provision processor: chrome removal, minimal structural
// selection, and rendering helpers.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// denylistedElements are element kinds removed wholesale: scripts, styling,
// and page chrome that never carries document content.
var denylistedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
}

// chromeMarkers are class/id fragments identifying non-content regions of
// legislation.gov.uk pages.
var chromeMarkers = []string{
	"breadcrumb",
	"tooltip",
	"printoption",
	"print-option",
	"interface",
	"cookiebanner",
	"skiplink",
	"viewleg-nav",
}

// Parse parses an HTML payload into a document node. The HTML5 parser never
// fails on malformed input; only truncated reads produce an error.
func Parse(payload []byte) (*html.Node, error) {
	document, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return document, nil
}

// Sanitize removes the fixed denylist of non-content elements from the
// subtree rooted at node, in place. Everything outside the denylist is
// preserved. Sanitizing already-sanitized markup is a no-op.
func Sanitize(node *html.Node) {
	child := node.FirstChild
	for child != nil {
		next := child.NextSibling
		if isDenylisted(child) {
			node.RemoveChild(child)
		} else {
			Sanitize(child)
		}
		child = next
	}
}

func isDenylisted(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	if denylistedElements[node.Data] {
		return true
	}

	marker := strings.ToLower(attrValue(node, "class") + " " + attrValue(node, "id"))
	for _, chromeMarker := range chromeMarkers {
		if strings.Contains(marker, chromeMarker) {
			return true
		}
	}
	return false
}

// InnerHTML renders the children of node back to markup text.
func InnerHTML(node *html.Node) string {
	var buffer bytes.Buffer
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		// Render only fails on unrenderable node types, which cannot occur
		// in a tree produced by Parse.
		_ = html.Render(&buffer, child)
	}
	return buffer.String()
}

// Text returns the concatenated text content of the subtree, with whitespace
// collapsed.
func Text(node *html.Node) string {
	var builder strings.Builder
	collectText(node, &builder)
	return strings.Join(strings.Fields(builder.String()), " ")
}

func collectText(node *html.Node, builder *strings.Builder) {
	if node.Type == html.TextNode {
		builder.WriteString(node.Data)
		builder.WriteString(" ")
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}

func attrValue(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
