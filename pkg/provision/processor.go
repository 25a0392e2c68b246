// Package provision fetches and transforms the content fragment of a single
// table-of-contents node: it filters authoring-tool attributes, rewrites
// internal cross-references into navigable anchors, flattens typographic
// wrappers, and lifts inline commentary references out into a separate
// amendment-note list.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/coolbeans/statute/internal/logger"
	"github.com/coolbeans/statute/pkg/toc"
	"github.com/coolbeans/statute/pkg/transport"
)

// NoteKind classifies an amendment note.
type NoteKind string

const (
	// NoteTextual marks a textual amendment (source type code F).
	NoteTextual NoteKind = "textual"

	// NoteCommencement marks commencement information (source type codes I
	// and C).
	NoteCommencement NoteKind = "commencement"

	// NoteOther covers source type codes with no known mapping.
	NoteOther NoteKind = "other"
)

// AmendmentNote is one commentary block lifted out of the provision body.
type AmendmentNote struct {
	Kind  NoteKind `json:"kind"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
}

/// Content is the processed provision: a cleaned body plus the amendment
// notes that were referenced inline. Notes are surfaced separately rather
// than interleaved because interleaving breaks reading flow.
type Content struct {
	Body      string          `json:"body"`
	Notes     []AmendmentNote `json:"notes,omitempty"`
	SourceURL string          `json:"source_url"`
}

// FragmentError is the failure payload for one provision. It carries a
// direct link to the source so the caller can offer a fallback; a failed
// provision never affects siblings.
type FragmentError struct {
	Message     string
	FallbackURL string
}

func (fragmentError *FragmentError) Error() string {
	if fragmentError.FallbackURL == "" {
		return fragmentError.Message
	}
	return fmt.Sprintf("%s; view it at the source: %s", fragmentError.Message, fragmentError.FallbackURL)
}

// dataXMLSuffix is the fragment-content suffix of provision URIs.
const dataXMLSuffix = "/data.xml"

// attributeAllowList is the fixed set of attributes retained on output
// elements. The source format carries many authoring-tool attributes
// irrelevant to rendering; dropping them is a deliberate information
// reduction. The link target attribute (URI in the source vocabulary) is
// normalized to href, and the commentary reference attribute to ref.
var attributeAllowList = map[string]string{
	"class": "class",
	"style": "style",
	"href":  "href",
	"uri":   "href",
	"ref":   "ref",
}

// citationElements are the reference elements rewritten into navigable
// anchors.
var citationElements = map[string]bool{
	"Citation":       true,
	"CitationSubRef": true,
}

// flattenedWrappers are inline semantic-markup tags reduced to their
// content: amendment substitution/addition/repeal markers, typographic
// emphasis, and generic text/paragraph wrappers. They exist in the source
// for legal-typography reasons that do not survive rendering as cleaned
// body text.
var flattenedWrappers = map[string]bool{
	"Substitution": true,
	"Addition":     true,
	"Repeal":       true,
	"Emphasis":     true,
	"SmallCaps":    true,
	"Superior":     true,
	"Inferior":     true,
	"Strong":       true,
	"Text":         true,
	"Para":         true,
}

// bodyRootElements are tried in order when locating the substantive root of
// a fragment.
var bodyRootElements = []string{"Body", "Schedule", "Schedules", "Part"}

// Processor turns one TOC node into processed provision content.
type Processor struct {
	fetcher transport.Fetcher
	log     *logger.Logger
}

// NewProcessor creates a Processor. A nil logger disables logging.
func NewProcessor(fetcher transport.Fetcher, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		fetcher: fetcher,
		log:     log.WithComponent("provision"),
	}
}

// FragmentURL derives the XML fragment URL for a provision URI, appending
// the data-XML suffix unless already present.
func FragmentURL(documentURI string) string {
	if strings.HasSuffix(documentURI, dataXMLSuffix) {
		return documentURI
	}
	return strings.TrimSuffix(documentURI, "/") + dataXMLSuffix
}

// Process fetches and transforms the fragment for one TOC node. All
// failures come back as a *FragmentError scoped to this provision; the
// caller is never crashed.
func (processor *Processor) Process(ctx context.Context, node *toc.Node) (*Content, error) {
	if node == nil || node.DocumentURI == "" {
		return nil, &FragmentError{Message: "provision has no resolvable location"}
	}

	fragmentURL := FragmentURL(node.DocumentURI)
	payload, err := processor.fetcher.Fetch(ctx, fragmentURL)
	if err != nil {
		processor.log.Debug().Str("url", fragmentURL).Err(err).Msg("fragment fetch failed")
		return nil, &FragmentError{
			Message:     fmt.Sprintf("failed to fetch provision content: %v", err),
			FallbackURL: node.DocumentURI,
		}
	}
	if !payload.OK() {
		return nil, &FragmentError{
			Message:     fmt.Sprintf("source returned HTTP %d for provision content", payload.StatusCode),
			FallbackURL: node.DocumentURI,
		}
	}

	document, err := ParseTree(payload.Body)
	if err != nil {
		return nil, &FragmentError{
			Message:     fmt.Sprintf("failed to parse provision content: %v", err),
			FallbackURL: node.DocumentURI,
		}
	}

	body := locateBodyRoot(document)
	if body == nil {
		return nil, &FragmentError{
			Message:     "provision content has no body or schedule root",
			FallbackURL: node.DocumentURI,
		}
	}

	filterAttributes(body)
	resolveCitations(body)
	flattenWrappers(body)
	notes := extractCommentary(document, body)

	processor.log.Debug().Str("provision", node.ID).Int("notes", len(notes)).Msg("provision processed")
	return &Content{
		Body:      body.Serialize(),
		Notes:     notes,
		SourceURL: node.DocumentURI,
	}, nil
}

func locateBodyRoot(document *XMLNode) *XMLNode {
	for _, name := range bodyRootElements {
		if root := document.Find(name); root != nil {
			return root
		}
	}
	return nil
}

// filterAttributes walks every descendant element and retains only the
// attribute allow-list, normalizing kept names.
func filterAttributes(node *XMLNode) {
	node.walk(func(candidate *XMLNode) {
		if candidate.Kind != ElementNode || len(candidate.Attrs) == 0 {
			return
		}
		kept := candidate.Attrs[:0]
		for _, attr := range candidate.Attrs {
			if normalized, allowed := attributeAllowList[strings.ToLower(attr.Name)]; allowed {
				kept = append(kept, Attr{Name: normalized, Value: attr.Value})
			}
		}
		candidate.Attrs = kept
	})
}

// resolveCitations replaces citation elements carrying a target with
// navigable anchors; targetless citations collapse to their text.
func resolveCitations(node *XMLNode) {
	for index, child := range node.Children {
		if child.Kind != ElementNode {
			continue
		}
		if citationElements[child.Name] {
			text := child.DeepText()
			target := child.Attr("href")
			if target == "" {
				node.Children[index] = &XMLNode{Kind: TextNode, Text: text}
				continue
			}
			node.Children[index] = &XMLNode{
				Kind: ElementNode,
				Name: "a",
				Attrs: []Attr{
					{Name: "href", Value: target},
					{Name: "class", Value: "citation"},
				},
				Children: []*XMLNode{{Kind: TextNode, Text: text}},
			}
			continue
		}
		resolveCitations(child)
	}
}

// flattenWrappers splices wrapper elements out of the tree, promoting their
// children in place. Unwrapping rather than text-flattening keeps anchors
// produced by citation resolution intact inside paragraph wrappers.
func flattenWrappers(node *XMLNode) {
	flattened := make([]*XMLNode, 0, len(node.Children))
	for _, child := range node.Children {
		if child.Kind == ElementNode {
			flattenWrappers(child)
			if flattenedWrappers[child.Name] {
				flattened = append(flattened, child.Children...)
				continue
			}
		}
		flattened = append(flattened, child)
	}
	node.Children = flattened
}

// extractCommentary removes inline commentary references from the body and
// collects the referenced commentary blocks as amendment notes. Notes keep
// first-reference order and duplicate references to one commentary collapse
// to one note.
func extractCommentary(document *XMLNode, body *XMLNode) []AmendmentNote {
	notes := []AmendmentNote{}
	seen := map[string]bool{}
	kindCounts := map[NoteKind]int{}

	refs := body.FindAll("CommentaryRef")
	for _, ref := range refs {
		commentaryID := ref.Attr("ref")
		if commentaryID == "" || seen[commentaryID] {
			continue
		}
		commentary := findCommentary(document, commentaryID)
		if commentary == nil {
			continue
		}
		seen[commentaryID] = true

		kind := classifyCommentary(commentary.Attr("Type"))
		kindCounts[kind]++
		notes = append(notes, AmendmentNote{
			Kind:  kind,
			Title: noteTitle(kind, kindCounts[kind]),
			Body:  commentary.DeepText(),
		})
	}

	removeElements(body, "CommentaryRef")
	return notes
}

// classifyCommentary maps the source's commentary type code to a closed
// variant. Codes outside the observed set map to NoteOther rather than
// guessing.
func classifyCommentary(typeCode string) NoteKind {
	switch strings.ToUpper(typeCode) {
	case "F":
		return NoteTextual
	case "I", "C":
		return NoteCommencement
	default:
		return NoteOther
	}
}

func noteTitle(kind NoteKind, ordinal int) string {
	switch kind {
	case NoteTextual:
		return fmt.Sprintf("F%d", ordinal)
	case NoteCommencement:
		return fmt.Sprintf("I%d", ordinal)
	default:
		return fmt.Sprintf("X%d", ordinal)
	}
}

func findCommentary(document *XMLNode, commentaryID string) *XMLNode {
	for _, commentary := range document.FindAll("Commentary") {
		if commentary.Attr("id") == commentaryID {
			return commentary
		}
	}
	return nil
}

func removeElements(node *XMLNode, name string) {
	kept := node.Children[:0]
	for _, child := range node.Children {
		if child.Kind == ElementNode && child.Name == name {
			continue
		}
		if child.Kind == ElementNode {
			removeElements(child, name)
		}
		kept = append(kept, child)
	}
	node.Children = kept
}
