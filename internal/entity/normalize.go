package entity

import (
	"strings"
	"unicode"

	"github.com/matsen/refmatch/internal/reference"
)

// Normalize builds a Reference from a span and its post-processed entities.
func Normalize(span reference.Span, bag reference.EntityBag) reference.Reference {
	return reference.Reference{
		Ordinal:    span.Ordinal,
		Label:      span.Label,
		RawText:    span.Text,
		Entities:   bag,
		Normalized: NormalizedView(&bag),
	}
}

// NormalizedView projects the first value of each scored field.
// The year keeps only digits, at most four of them.
func NormalizedView(bag *reference.EntityBag) reference.Normalized {
	title := strings.TrimSpace(bag.First(reference.Title))
	return reference.Normalized{
		Title:     strings.ToLower(title),
		OrigTitle: title,
		Year:      yearDigits(bag.First(reference.PublicationYear)),
		Journal:   strings.ToLower(strings.TrimSpace(bag.First(reference.Journal))),
		DOI:       strings.TrimSpace(bag.First(reference.DOI)),
	}
}

func yearDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == 4 {
			break
		}
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
