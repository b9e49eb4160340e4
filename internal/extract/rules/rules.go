// Package rules is a regular-expression reference parser for common
// author-year and numbered citation styles. It needs no model or service,
// so it is always available, but it is far less accurate than the others.
package rules

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/reference"
)

var (
	yearRe      = regexp.MustCompile(`\(?\b((?:1[5-9]|20)\d{2})[a-z]?\b\)?`)
	doiRe       = regexp.MustCompile(`(?i)(?:https?://(?:dx\.)?doi\.org/|doi:\s*)?10\.\d{4,9}/[^\s<>"]+`)
	issnRe      = regexp.MustCompile(`\b\d{4}-\d{3}[\dXx]\b`)
	isbnRe      = regexp.MustCompile(`(?i)ISBN(?:-1[03])?:?\s*([\d][\d\- ]{8,15}[\dXx])`)
	volIssueRe  = regexp.MustCompile(`\b(\d{1,4})\s*\((\d{1,4}(?:[-–]\d{1,4})?)\)`)
	volumeRe    = regexp.MustCompile(`(?i)\b(?:vol\.?|volume)\s*(\d{1,4})\b`)
	pagesRe     = regexp.MustCompile(`(?i)(?:\bpp?\.\s*)?\b(\d{1,6})\s*[-–—]\s*(\d{1,6})\b`)
	personRe    = regexp.MustCompile(`\p{Lu}[\p{L}'’\-]+(?:\s+\p{Lu}[\p{L}'’\-]+)?,\s*(?:\p{Lu}\.\s*-?\s*)+`)
	sentenceEnd = regexp.MustCompile(`[.?!](?:\s+|$)`)
)

// Classifier labels reference text with regular expressions.
type Classifier struct{}

// NewExtractor returns the rules backend.
func NewExtractor() extract.Extractor {
	return extract.NewTokenPipeline("rules", Classifier{}, true)
}

// Classify finds identifiers, numbers, authors, title and journal in text.
func (Classifier) Classify(ctx context.Context, text string) ([]extract.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var spans []extract.Span
	add := func(f reference.Field, start, end int) {
		start, end = trimBounds(text, start, end)
		if end > start {
			spans = append(spans, extract.Span{Label: f, Text: text[start:end], Start: start, End: end, Score: 0.5})
		}
	}

	// Identifiers are masked so their digits are not read as years or pages.
	masked := []byte(text)
	mask := func(loc []int) {
		for i := loc[0]; i < loc[1]; i++ {
			masked[i] = ' '
		}
	}

	for _, loc := range doiRe.FindAllStringIndex(text, -1) {
		end := loc[0] + len(strings.TrimRight(text[loc[0]:loc[1]], ".,;)"))
		add(reference.DOI, loc[0], end)
		mask(loc)
	}
	for _, m := range isbnRe.FindAllStringSubmatchIndex(string(masked), -1) {
		add(reference.ISBN, m[2], m[3])
		mask(m[:2])
	}
	for _, loc := range issnRe.FindAllStringIndex(string(masked), -1) {
		add(reference.ISSN, loc[0], loc[1])
		mask(loc)
	}

	rest := string(masked)

	yearLoc := yearRe.FindStringSubmatchIndex(rest)
	if yearLoc != nil {
		add(reference.PublicationYear, yearLoc[2], yearLoc[3])
		mask(yearLoc[:2])
	}

	var numbersAt int
	if m := volIssueRe.FindStringSubmatchIndex(string(masked)); m != nil {
		add(reference.Volume, m[2], m[3])
		add(reference.Issue, m[4], m[5])
		numbersAt = m[0]
		mask(m[:2])
	} else if m := volumeRe.FindStringSubmatchIndex(string(masked)); m != nil {
		add(reference.Volume, m[2], m[3])
		numbersAt = m[0]
		mask(m[:2])
	}
	if m := pagesRe.FindStringSubmatchIndex(string(masked)); m != nil {
		add(reference.PageFirst, m[2], m[3])
		add(reference.PageLast, m[4], m[5])
		if numbersAt == 0 || m[0] < numbersAt {
			numbersAt = m[0]
		}
	}

	spans = append(spans, bibliographicParts(text, yearLoc, numbersAt)...)
	return spans, nil
}

// bibliographicParts locates authors, title and journal from the layout
// around the year: "Authors (Year). Title. Journal, ..." or, without a
// leading year, "Authors. Title. Journal ...".
func bibliographicParts(text string, yearLoc []int, numbersAt int) []extract.Span {
	var (
		spans       []extract.Span
		authorsEnd  int
		titleStart  int
		authorsSpan = func(end int) {
			for _, loc := range personRe.FindAllStringIndex(text[:end], -1) {
				s, e := trimBounds(text, loc[0], loc[1])
				spans = append(spans, extract.Span{Label: reference.Authors, Text: text[s:e], Start: s, End: e, Score: 0.4})
			}
		}
	)

	if yearLoc != nil && yearLoc[0] > 0 && yearLoc[0] < len(text)/2 {
		authorsEnd = yearLoc[0]
		titleStart = yearLoc[1]
	} else {
		loc := firstSentenceEnd(text, 0)
		if loc < 0 {
			return nil
		}
		authorsEnd = loc
		titleStart = loc + 1
	}
	authorsSpan(authorsEnd)

	titleStart = skipPunct(text, titleStart)
	titleEnd := firstSentenceEnd(text, titleStart)
	if titleEnd < 0 {
		titleEnd = len(text)
	}
	if s, e := trimBounds(text, titleStart, titleEnd); e > s {
		spans = append(spans, extract.Span{Label: reference.Title, Text: text[s:e], Start: s, End: e, Score: 0.4})
	}

	journalStart := skipPunct(text, titleEnd+1)
	journalEnd := len(text)
	if numbersAt > journalStart {
		journalEnd = numbersAt
	}
	if i := strings.IndexAny(text[min(journalStart, len(text)):journalEnd], ",.;"); i >= 0 {
		journalEnd = journalStart + i
	}
	if journalStart < journalEnd {
		if s, e := trimBounds(text, journalStart, journalEnd); e > s && hasLetter(text[s:e]) {
			spans = append(spans, extract.Span{Label: reference.Journal, Text: text[s:e], Start: s, End: e, Score: 0.3})
		}
	}

	return spans
}

// firstSentenceEnd returns the index of the first sentence terminator at or
// after from that is not inside a run of initials.
func firstSentenceEnd(text string, from int) int {
	for from < len(text) {
		loc := sentenceEnd.FindStringIndex(text[from:])
		if loc == nil {
			return -1
		}
		at := from + loc[0]
		if !isInitial(text, at) {
			return at
		}
		from = at + 1
	}
	return -1
}

// isInitial reports whether the period at i ends an initial that is
// followed by another one, as in "J. K.".
func isInitial(text string, i int) bool {
	if text[i] != '.' || i == 0 || !unicode.IsUpper(rune(text[i-1])) {
		return false
	}
	if i >= 2 && unicode.IsLetter(rune(text[i-2])) {
		return false
	}
	j := i + 1
	for j < len(text) && text[j] == ' ' {
		j++
	}
	return j+1 < len(text) && unicode.IsUpper(rune(text[j])) && text[j+1] == '.'
}

func skipPunct(text string, i int) int {
	for i < len(text) && strings.ContainsRune(" .,;:)]", rune(text[i])) {
		i++
	}
	return i
}

// trimBounds narrows [start,end) to exclude surrounding space and punctuation.
func trimBounds(text string, start, end int) (int, int) {
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))
	for start < end && strings.ContainsRune(" \t,;:.()[]", rune(text[start])) {
		start++
	}
	for end > start && strings.ContainsRune(" \t,;:()[]", rune(text[end-1])) {
		end--
	}
	return start, end
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
