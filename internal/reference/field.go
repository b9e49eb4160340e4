// Package reference defines the core domain types for extracted bibliographic references.
package reference

import (
	"fmt"
	"strings"
)

// Field is one of the closed set of bibliographic entity labels.
type Field int

// Recognized entity fields, in canonical order.
const (
	Title Field = iota
	Authors
	Volume
	Issue
	PublicationYear
	DOI
	ISSN
	ISBN
	PageFirst
	PageLast
	Journal
	Editor

	numFields
)

var fieldNames = [numFields]string{
	Title:           "TITLE",
	Authors:         "AUTHORS",
	Volume:          "VOLUME",
	Issue:           "ISSUE",
	PublicationYear: "PUBLICATION_YEAR",
	DOI:             "DOI",
	ISSN:            "ISSN",
	ISBN:            "ISBN",
	PageFirst:       "PAGE_FIRST",
	PageLast:        "PAGE_LAST",
	Journal:         "JOURNAL",
	Editor:          "EDITOR",
}

// AllFields returns every field in canonical order.
func AllFields() []Field {
	fields := make([]Field, numFields)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

// String returns the upper-case label name, e.g. "PUBLICATION_YEAR".
func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	return f >= 0 && f < numFields
}

// ParseField maps a label to a Field. Matching is case-insensitive and
// BIO prefixes ("B-", "I-") are ignored.
func ParseField(label string) (Field, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if strings.HasPrefix(s, "B-") || strings.HasPrefix(s, "I-") {
		s = s[2:]
	}
	for i, name := range fieldNames {
		if name == s {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown entity label %q", label)
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid field %d", int(f))
	}
	return []byte(fieldNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
