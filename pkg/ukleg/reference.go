package ukleg

import "regexp"

// referencePattern matches the provision-level tail of a legislation.gov.uk
// URI, e.g. /section/12, /article/4A, /regulation/7, /paragraph/3.
var referencePattern = regexp.MustCompile(`/(section|article|regulation|paragraph|rule)/(\d+[A-Za-z]*)`)

// ReferenceNumber extracts the provision number embedded in a citation
// target URI. Returns false when the target does not address a single
// provision (whole-document links, external sites).
func ReferenceNumber(target string) (string, bool) {
	match := referencePattern.FindStringSubmatch(target)
	if match == nil {
		return "", false
	}
	return match[2], true
}
