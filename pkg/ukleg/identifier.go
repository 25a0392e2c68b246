// Package ukleg models canonical identifiers for legal instruments published
// on legislation.gov.uk and the URL shapes under which they are reachable.
// The same instrument appears under many URL variants (contents page, enacted
// version, dated revision, data.xml fragments); every variant normalizes back
// to one identifier of the form {type}/{year}/{number}.
package ukleg

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LegislationType is the legislation.gov.uk type code that prefixes a
// document path. See: https://www.legislation.gov.uk/developer
type LegislationType string

const (
	TypeUKPGA LegislationType = "ukpga" // UK Public General Acts
	TypeUKLA  LegislationType = "ukla"  // UK Local Acts
	TypeUKSI  LegislationType = "uksi"  // UK Statutory Instruments
	TypeASP   LegislationType = "asp"   // Acts of the Scottish Parliament
	TypeSSI   LegislationType = "ssi"   // Scottish Statutory Instruments
	TypeANAW  LegislationType = "anaw"  // Acts of the National Assembly for Wales
	TypeWSI   LegislationType = "wsi"   // Wales Statutory Instruments
	TypeNIA   LegislationType = "nia"   // Acts of the Northern Ireland Assembly
	TypeNISR  LegislationType = "nisr"  // Northern Ireland Statutory Rules
)

// BaseURL is the origin all canonical identifiers resolve against.
const BaseURL = "https://www.legislation.gov.uk"

// SourceHost is the hostname of the legislation source.
const SourceHost = "www.legislation.gov.uk"

var knownTypes = map[string]bool{
	string(TypeUKPGA): true,
	string(TypeUKLA):  true,
	string(TypeUKSI):  true,
	string(TypeASP):   true,
	string(TypeSSI):   true,
	string(TypeANAW):  true,
	string(TypeWSI):   true,
	string(TypeNIA):   true,
	string(TypeNISR):  true,
}

var (
	yearSegment   = regexp.MustCompile(`^\d{4}$`)
	numberSegment = regexp.MustCompile(`^\d+$`)
	dateSegment   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// versionSuffixes are trailing path segments that select a view or version of
// a document rather than identifying a different document.
var versionSuffixes = map[string]bool{
	"contents": true,
	"enacted":  true,
	"made":     true,
	"body":     true,
	"data.xml": true,
	"data.htm": true,
}

// Identifier is the canonical, version-independent reference to one legal
// instrument.
type Identifier struct {
	Type   LegislationType `json:"type"`
	Year   string          `json:"year"`
	Number string          `json:"number"`
}

// String returns the canonical base URL for the instrument.
func (identifier Identifier) String() string {
	return BaseURL + "/" + string(identifier.Type) + "/" + identifier.Year + "/" + identifier.Number
}

// ContentsURL returns the human-readable contents page URL.
func (identifier Identifier) ContentsURL() string {
	return identifier.String() + "/contents"
}

// OutlineURL returns the URL of the structured contents XML for the
// instrument, used by the TOC builder.
func (identifier Identifier) OutlineURL() string {
	return identifier.String() + "/contents/data.xml"
}

// CandidateURLs returns the ordered list of URL variants the content
// retriever attempts for this instrument. The order is load-bearing: the bare
// identifier first, then /enacted (which most reliably bypasses the
// version-selection interstitial), then the contents variants.
func (identifier Identifier) CandidateURLs() []string {
	base := identifier.String()
	return []string{
		base,
		base + "/enacted",
		base + "/contents",
		base + "/enacted/contents",
	}
}

// SearchURL returns the Atom search feed URL for a free-text query.
func SearchURL(query string) string {
	return BaseURL + "/all/data.feed?text=" + url.QueryEscape(query)
}

// NormalizeURL reduces any known legislation.gov.uk URL shape to the
// canonical base identifier URL: transport is forced to https, relative paths
// are resolved against the source origin, and version/view suffixes
// (/contents, /enacted, dated revisions, data.xml) plus query and fragment
// are stripped. Normalization is idempotent.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("URL is empty")
	}

	// Relative links from search feeds resolve against the source origin.
	if strings.HasPrefix(trimmed, "/") {
		trimmed = BaseURL + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}

	parsed.Scheme = "https"
	parsed.RawQuery = ""
	parsed.Fragment = ""
	if parsed.Host == "" {
		parsed.Host = SourceHost
	}

	segments := splitPath(parsed.Path)

	// Preferred path: locate the {type}/{year}/{number} triplet anywhere in
	// the path and discard everything around it.
	if typeIndex, found := findTriplet(segments); found {
		parsed.Path = "/" + strings.Join(segments[typeIndex:typeIndex+3], "/")
		return parsed.String(), nil
	}

	// Fallback for paths without a recognizable triplet: peel version/view
	// suffixes and dated revisions off the end until none remain.
	for len(segments) > 0 {
		last := segments[len(segments)-1]
		if versionSuffixes[last] || dateSegment.MatchString(last) {
			segments = segments[:len(segments)-1]
			continue
		}
		break
	}
	parsed.Path = "/" + strings.Join(segments, "/")
	if len(segments) == 0 {
		parsed.Path = ""
	}

	return parsed.String(), nil
}

// ParseIdentifier derives the canonical Identifier from any known document
// URL shape. Returns an error when the URL does not contain a recognizable
// {type}/{year}/{number} path.
func ParseIdentifier(rawURL string) (Identifier, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return Identifier{}, err
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return Identifier{}, fmt.Errorf("failed to parse normalized URL %q: %w", normalized, err)
	}

	segments := splitPath(parsed.Path)
	typeIndex, found := findTriplet(segments)
	if !found {
		return Identifier{}, fmt.Errorf("no legislation identifier found in URL: %s", rawURL)
	}

	return Identifier{
		Type:   LegislationType(segments[typeIndex]),
		Year:   segments[typeIndex+1],
		Number: segments[typeIndex+2],
	}, nil
}

// findTriplet scans path segments for a known type code followed by a year
// and an instrument number.
func findTriplet(segments []string) (int, bool) {
	for i := 0; i+2 < len(segments); i++ {
		if knownTypes[segments[i]] &&
			yearSegment.MatchString(segments[i+1]) &&
			numberSegment.MatchString(segments[i+2]) {
			return i, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	segments := make([]string, 0, 8)
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
