package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector identifies a structural container. Fields combine with AND; zero
// fields are ignored. This intentionally covers only what content extraction
// needs — tag, id, and a single class — not general CSS.
type Selector struct {
	Tag   string `yaml:"tag,omitempty"`
	ID    string `yaml:"id,omitempty"`
	Class string `yaml:"class,omitempty"`
}

// String returns a CSS-like rendering for logs and attempt reports.
func (selector Selector) String() string {
	var builder strings.Builder
	builder.WriteString(selector.Tag)
	if selector.ID != "" {
		builder.WriteString("#" + selector.ID)
	}
	if selector.Class != "" {
		builder.WriteString("." + selector.Class)
	}
	if builder.Len() == 0 {
		return "*"
	}
	return builder.String()
}

// Find returns the first element in depth-first document order matching the
// selector, or nil.
func Find(root *html.Node, selector Selector) *html.Node {
	if matches(root, selector) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := Find(child, selector); found != nil {
			return found
		}
	}
	return nil
}

func matches(node *html.Node, selector Selector) bool {
	if node.Type != html.ElementNode {
		return false
	}
	if selector.Tag != "" && node.Data != selector.Tag {
		return false
	}
	if selector.ID != "" && attrValue(node, "id") != selector.ID {
		return false
	}
	if selector.Class != "" && !hasClass(node, selector.Class) {
		return false
	}
	return selector.Tag != "" || selector.ID != "" || selector.Class != ""
}

func hasClass(node *html.Node, class string) bool {
	for _, candidate := range strings.Fields(attrValue(node, "class")) {
		if candidate == class {
			return true
		}
	}
	return false
}
