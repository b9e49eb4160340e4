package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/matsen/refmatch/internal/entity"
	"github.com/matsen/refmatch/internal/reference"
)

// DefaultMinLength is the shortest span the prescreen accepts.
const DefaultMinLength = 20

var (
	yearSignal = regexp.MustCompile(`\b(?:1[5-9]|20)\d{2}[a-z]?\b`)
	isbnSignal = regexp.MustCompile(`(?i)\bISBN\b`)
)

// Prescreen splits spans into plausible references and rejects. A span is
// kept when it has at least minLength characters and carries a year, a DOI
// or an ISBN. A non-positive minLength uses DefaultMinLength.
//
// Kept spans are renumbered 1..n; rejected spans keep their source ordinal.
func Prescreen(spans []reference.Span, minLength int) (kept, rejected []reference.Span) {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	kept = make([]reference.Span, 0, len(spans))
	for _, s := range spans {
		if looksLikeReference(s.Text, minLength) {
			s.Ordinal = len(kept) + 1
			kept = append(kept, s)
		} else {
			rejected = append(rejected, s)
		}
	}
	return kept, rejected
}

func looksLikeReference(text string, minLength int) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minLength {
		return false
	}
	return yearSignal.MatchString(text) || entity.FindDOI(text) != "" || isbnSignal.MatchString(text)
}
