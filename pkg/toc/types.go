// Package toc builds the hierarchical table of contents of a legal
// instrument from its structured contents XML, with a heading-based HTML
// fallback when the outline is unavailable.
package toc

// Node is one entry in the table of contents. Nodes form a tree: top-level
// sections, Parts and Schedules at the root, with Parts and Schedules owning
// nested item children one level deeper.
type Node struct {
	// ID identifies the node stably across re-parses of the same outline.
	ID string `json:"id"`

	// Number is the provision number as printed ("1", "Part 2", "Schedule 1").
	Number string `json:"number"`

	// Title is the provision heading.
	Title string `json:"title"`

	// DocumentURI locates the provision's content on the source.
	DocumentURI string `json:"document_uri"`

	// Status is the source's lifecycle flag for the provision, if any
	// (e.g. "Prospective").
	Status string `json:"status,omitempty"`

	// Children are nested items in source order.
	Children []*Node `json:"children,omitempty"`

	// Level is the nesting depth: 0 for roots, 1 for Part/Schedule items.
	Level int `json:"level"`
}

// Metadata is the outline document's metadata block, consumed by the status
// classifier.
type Metadata struct {
	// Modified is the source's modification timestamp, if published.
	Modified string `json:"modified,omitempty"`

	// UnappliedEffects counts amendment effects not yet applied to the text.
	UnappliedEffects int `json:"unapplied_effects"`

	// Title is the instrument's long title.
	Title string `json:"title,omitempty"`
}

// Outline is the parsed contents document: the root node sequence plus the
// metadata block when present.
type Outline struct {
	Roots []*Node   `json:"roots"`
	Meta  *Metadata `json:"meta,omitempty"`
}
