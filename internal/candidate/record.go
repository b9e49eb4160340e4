// Package candidate prepares known works for matching against extracted references.
package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a nullable string field that also accepts JSON numbers,
// as publication years often arrive as 2019 or 2019.0.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a valid Text.
func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

// String returns the value, or "" when absent.
func (t Text) String() string {
	if !t.Valid {
		return ""
	}
	return t.Value
}

// MarshalJSON encodes absent values as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts a string, a number or null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = NewText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string, number or null, got %s", data)
	}
	*t = NewText(n.String())
	return nil
}

// Record is one known work as supplied by a profile source.
type Record struct {
	Title           Text `json:"title"`
	PublicationYear Text `json:"publication-year"`
	JournalTitle    Text `json:"journal-title"`
	DOI             Text `json:"doi"`
}

// IsZero reports whether the record carries no usable field.
func (r Record) IsZero() bool {
	return strings.TrimSpace(r.Title.String()) == "" &&
		strings.TrimSpace(r.PublicationYear.String()) == "" &&
		strings.TrimSpace(r.JournalTitle.String()) == "" &&
		strings.TrimSpace(r.DOI.String()) == ""
}
