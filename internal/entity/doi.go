package entity

import (
	"regexp"
	"strings"
)

// doiPattern finds a DOI inside running text: 10.XXXX/... where XXXX is 4-9 digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiShape is the minimal shape a cleaned DOI must have.
var doiShape = regexp.MustCompile(`^10\.\d+/\S+`)

// doiResolverPrefix matches resolver URLs and bare resolver hosts.
var doiResolverPrefix = regexp.MustCompile(`(?i)^(?:https?://)?(?:dx\.)?doi\.org/`)

// doiTag matches a leading "doi:" or "DOI " label.
var doiTag = regexp.MustCompile(`(?i)^doi\s*:?\s*`)

// CanonicalDOI joins DOI fragments and reduces them to the bare "10.x/y" form.
// It returns "" when the result does not look like a DOI.
func CanonicalDOI(fragments ...string) string {
	doi := strings.TrimSpace(strings.Join(fragments, ""))
	doi = strings.TrimLeft(doi, ". ")
	doi = doiResolverPrefix.ReplaceAllString(doi, "")
	doi = doiTag.ReplaceAllString(doi, "")
	doi = strings.TrimSpace(doi)
	if !doiShape.MatchString(doi) {
		return ""
	}
	return doi
}

// FindDOI returns the first plausible DOI found in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}
