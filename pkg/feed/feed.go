// Package feed normalizes legislation.gov.uk Atom search feeds into a
// uniform search-result sequence with canonical document identifiers.
package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/statute/pkg/ukleg"
)

// SearchResult is one normalized search hit. CanonicalURL always carries the
// base document identifier, so hits pointing at different revisions of the
// same instrument compare equal by URL.
type SearchResult struct {
	Title         string     `json:"title"`
	CanonicalURL  string     `json:"canonical_url"`
	Snippet       string     `json:"snippet"`
	SourceUpdated *time.Time `json:"source_updated,omitempty"`
}

// --- Atom feed structures ---

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	ID      string     `xml:"id"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// alternateLink returns the entry's alternate HTML link, falling back to the
// first link present.
func (entry atomEntry) alternateLink() string {
	for _, link := range entry.Links {
		if link.Rel == "" || link.Rel == "alternate" {
			if link.Type == "" || strings.Contains(link.Type, "html") {
				return link.Href
			}
		}
	}
	if len(entry.Links) > 0 {
		return entry.Links[0].Href
	}
	return ""
}

// Normalize parses a raw Atom search feed into the ordered result sequence.
// Entries missing both title and link are dropped silently — feeds routinely
// contain incomplete entries. Links are upgraded to https, resolved against
// the source origin, and reduced to the canonical identifier.
func Normalize(payload []byte) ([]SearchResult, error) {
	var parsed atomFeed
	if err := xml.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search feed: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		title := strings.TrimSpace(entry.Title)
		link := entry.alternateLink()
		if title == "" && link == "" {
			continue
		}

		canonicalURL := ""
		if link != "" {
			normalized, err := ukleg.NormalizeURL(link)
			if err == nil {
				canonicalURL = normalized
			}
		}

		updated := parseAtomDate(entry.Updated)
		snippet := strings.TrimSpace(entry.Summary)
		if snippet == "" && updated != nil {
			snippet = "Last updated: " + updated.Format("2 January 2006")
		}

		results = append(results, SearchResult{
			Title:         title,
			CanonicalURL:  canonicalURL,
			Snippet:       snippet,
			SourceUpdated: updated,
		})
	}

	return results, nil
}

// parseAtomDate parses Atom/ISO date formats, returning nil when the field
// is absent or unparseable.
func parseAtomDate(dateStr string) *time.Time {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, strings.TrimSpace(dateStr)); err == nil {
			return &parsed
		}
	}
	return nil
}
