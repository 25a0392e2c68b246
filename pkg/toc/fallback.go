package toc

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/coolbeans/statute/pkg/markup"
)

var headingElements = map[string]bool{
	"h1": true,
	"h2": true,
	"h3": true,
	"h4": true,
	"h5": true,
	"h6": true,
}

// BuildFromHeadings reconstructs a best-effort flat table of contents from
// the heading elements of an already-retrieved HTML body. Used when the
// outline fetch fails entirely. Every node points back at the whole-document
// URL; fragment-level navigation is not available in this mode.
func BuildFromHeadings(body []byte, documentURL string) []*Node {
	document, err := markup.Parse(body)
	if err != nil {
		return nil
	}

	nodes := []*Node{}
	collectHeadings(document, documentURL, &nodes)
	return nodes
}

func collectHeadings(node *html.Node, documentURL string, nodes *[]*Node) {
	if node.Type == html.ElementNode && headingElements[node.Data] {
		title := markup.Text(node)
		if title != "" {
			*nodes = append(*nodes, &Node{
				ID:          fmt.Sprintf("heading-%d", len(*nodes)),
				Title:       cleanOutlineText(title),
				DocumentURI: documentURL,
				Level:       0,
			})
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectHeadings(child, documentURL, nodes)
	}
}
