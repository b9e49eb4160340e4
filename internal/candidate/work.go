package candidate

import (
	"strconv"
	"strings"
)

// UntitledPlaceholder is displayed for works without a title.
const UntitledPlaceholder = "Untitled"

// Work is the normalized projection of a Record used for scoring.
type Work struct {
	Title        string `json:"title"`
	Year         string `json:"year"`
	Journal      string `json:"journal"`
	DOI          string `json:"doi"`
	DisplayTitle string `json:"display_title"`
}

// Prepare converts records to works, one per record and in the same order.
func Prepare(records []Record) []Work {
	works := make([]Work, len(records))
	for i, r := range records {
		works[i] = prepareOne(r)
	}
	return works
}

func prepareOne(r Record) Work {
	w := Work{
		Title:        strings.ToLower(strings.TrimSpace(r.Title.String())),
		Year:         normalizeYear(r.PublicationYear.String()),
		Journal:      strings.ToLower(strings.TrimSpace(r.JournalTitle.String())),
		DOI:          strings.TrimSpace(r.DOI.String()),
		DisplayTitle: UntitledPlaceholder,
	}
	if strings.TrimSpace(r.Title.String()) != "" {
		w.DisplayTitle = r.Title.Value
	}
	return w
}

// normalizeYear trims s and keeps it only if it parses as a number.
func normalizeYear(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return s
}
