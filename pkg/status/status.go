// Package status derives a document's lifecycle label from its URL shape and
// outline metadata.
package status

import (
	"net/url"
	"strings"

	"github.com/coolbeans/statute/pkg/toc"
)

// Code is the closed set of document lifecycle states.
type Code string

const (
	AsEnacted       Code = "as_enacted"
	Revised         Code = "revised"
	RevisedPending  Code = "revised_pending"
	LatestAvailable Code = "latest_available"
	Unknown         Code = "unknown"
)

// DocumentStatus is a lifecycle code with its fixed presentation triple.
// The label, color and tooltip are constants, not computed.
type DocumentStatus struct {
	Code    Code   `json:"code"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Tooltip string `json:"tooltip"`
}

var statusTable = map[Code]DocumentStatus{
	AsEnacted: {
		Code:    AsEnacted,
		Label:   "As Enacted",
		Color:   "#006435",
		Tooltip: "The original text of the legislation as it was enacted or made.",
	},
	Revised: {
		Code:    Revised,
		Label:   "Revised",
		Color:   "#1d70b8",
		Tooltip: "The text incorporates amendments applied by the editorial team.",
	},
	RevisedPending: {
		Code:    RevisedPending,
		Label:   "Revised with Pending Changes",
		Color:   "#f47738",
		Tooltip: "The text is revised but known amendment effects have not yet been applied.",
	},
	LatestAvailable: {
		Code:    LatestAvailable,
		Label:   "Latest Available",
		Color:   "#505a5f",
		Tooltip: "The most recent version published by the source.",
	},
	Unknown: {
		Code:    Unknown,
		Label:   "Unknown",
		Color:   "#b1b4b6",
		Tooltip: "The source did not publish version metadata for this document.",
	},
}

// Of returns the presentation triple for a code.
func Of(code Code) DocumentStatus {
	return statusTable[code]
}

// Classify derives the document status from the current URL and the outline
// metadata. First match wins: the URL's enacted marker short-circuits every
// metadata-based rule.
func Classify(documentURL string, meta *toc.Metadata) DocumentStatus {
	if hasEnactedSegment(documentURL) {
		return statusTable[AsEnacted]
	}
	if meta == nil {
		return statusTable[Unknown]
	}
	if meta.UnappliedEffects > 0 {
		return statusTable[RevisedPending]
	}
	if meta.Modified != "" {
		return statusTable[Revised]
	}
	return statusTable[LatestAvailable]
}

func hasEnactedSegment(documentURL string) bool {
	parsed, err := url.Parse(documentURL)
	if err != nil {
		return false
	}
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment == "enacted" || segment == "made" {
			return true
		}
	}
	return false
}
