package provision

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/coolbeans/statute/pkg/toc"
	"github.com/coolbeans/statute/pkg/ukleg"
)

// ErrSuperseded reports that a newer activation started before this one
// finished. Last request wins; the stale result must be dropped, not
// rendered.
var ErrSuperseded = errors.New("provision activation superseded by a newer request")

// ErrUnresolvedReference reports that a citation target matched no node in
// the current table of contents. The anchor stays inert.
var ErrUnresolvedReference = errors.New("citation target matches no provision in the current document")

// Navigator is the single "activate provision" operation shared by explicit
// TOC clicks and pattern-matched cross-reference jumps, so the two entry
// points cannot diverge in behavior. Activations follow last-request-wins
// semantics: starting a new one cancels any still-pending predecessor.
type Navigator struct {
	processor *Processor
	roots     []*toc.Node

	mu     sync.Mutex
	cancel context.CancelFunc
	serial int
}

// NewNavigator creates a Navigator over the given TOC roots.
func NewNavigator(processor *Processor, roots []*toc.Node) *Navigator {
	return &Navigator{
		processor: processor,
		roots:     roots,
	}
}

// Activate fetches and processes the given node's content. If another
// activation starts while this one is in flight, this one is cancelled and
// returns ErrSuperseded.
func (navigator *Navigator) Activate(ctx context.Context, node *toc.Node) (*Content, error) {
	navigator.mu.Lock()
	if navigator.cancel != nil {
		navigator.cancel()
	}
	activationCtx, cancel := context.WithCancel(ctx)
	navigator.cancel = cancel
	navigator.serial++
	serial := navigator.serial
	navigator.mu.Unlock()

	content, err := navigator.processor.Process(activationCtx, node)

	navigator.mu.Lock()
	superseded := serial != navigator.serial
	if !superseded {
		cancel()
		navigator.cancel = nil
	}
	navigator.mu.Unlock()

	if superseded {
		return nil, ErrSuperseded
	}
	return content, err
}

// ActivateReference resolves a citation target to a TOC node by its embedded
// provision number and activates it. Targets that match no node return
// ErrUnresolvedReference.
func (navigator *Navigator) ActivateReference(ctx context.Context, target string) (*Content, error) {
	number, ok := ukleg.ReferenceNumber(target)
	if !ok {
		return nil, ErrUnresolvedReference
	}
	node := navigator.ResolveNumber(number)
	if node == nil {
		return nil, ErrUnresolvedReference
	}
	return navigator.Activate(ctx, node)
}

// ResolveNumber finds the first TOC node whose number matches, searching
// depth-first across the whole tree.
func (navigator *Navigator) ResolveNumber(number string) *toc.Node {
	target := normalizeNumber(number)
	if target == "" {
		return nil
	}
	for _, root := range navigator.roots {
		if found := findByNumber(root, target); found != nil {
			return found
		}
	}
	return nil
}

func findByNumber(node *toc.Node, target string) *toc.Node {
	if normalizeNumber(node.Number) == target {
		return node
	}
	for _, child := range node.Children {
		if found := findByNumber(child, target); found != nil {
			return found
		}
	}
	return nil
}

// normalizeNumber reduces printed provision numbers ("12.", "Section 12")
// and extracted ones ("12") to a comparable form.
func normalizeNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	trimmed = strings.TrimSuffix(trimmed, ".")
	if fields := strings.Fields(trimmed); len(fields) > 0 {
		trimmed = fields[len(fields)-1]
	}
	return strings.ToUpper(trimmed)
}
