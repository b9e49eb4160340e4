// Package segment splits free-form text into individual reference spans.
package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/refmatch/internal/reference"
)

// leadingNumber matches "[12] ...", "(12) ..." and "12. ..." at the start of a line.
// Numbers are limited to three digits so that a year opening a continuation
// line is not mistaken for a new entry.
var leadingNumber = regexp.MustCompile(`^\s*(?:\[(\d{1,3})\]|\((\d{1,3})\)|(\d{1,3})\.(?:\s|$))\s*(.*)$`)

// Segment splits text into reference spans in order of appearance.
//
// A numbered line starts a new reference, an unnumbered line continues the
// open one (or starts an unnumbered one) and a blank line closes it.
// Ordinals are sequential from 1; printed numbers are kept as labels only.
func Segment(text string) []reference.Span {
	var (
		spans     []reference.Span
		fragments []string
		label     string
		open      bool
	)

	flush := func() {
		if !open {
			return
		}
		joined := strings.TrimSpace(strings.Join(fragments, " "))
		if joined != "" {
			spans = append(spans, reference.Span{
				Text:    joined,
				Ordinal: len(spans) + 1,
				Label:   label,
			})
		}
		fragments = fragments[:0]
		label = ""
		open = false
	}

	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if n, rest, ok := parseNumbered(line); ok {
			flush()
			open = true
			label = n
			if rest != "" {
				fragments = append(fragments, rest)
			}
			continue
		}

		open = true
		fragments = append(fragments, strings.TrimSpace(line))
	}
	flush()

	return spans
}

// parseNumbered returns the printed number and the remainder of a numbered line.
func parseNumbered(line string) (string, string, bool) {
	m := leadingNumber.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	n := m[1]
	if n == "" {
		n = m[2]
	}
	if n == "" {
		n = m[3]
	}
	// Strip leading zeros so "007." and "7." carry the same label.
	if v, err := strconv.Atoi(n); err == nil {
		n = strconv.Itoa(v)
	}
	return n, strings.TrimSpace(m[4]), true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Join renders spans back into text, one reference per blank-line separated
// block. Printed labels are written back as "[n]"; an unlabelled span whose
// text itself starts with a number gets its ordinal so the number survives
// re-segmentation.
func Join(spans []reference.Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		label := s.Label
		if label == "" {
			if _, _, numbered := parseNumbered(s.Text); numbered {
				label = strconv.Itoa(s.Ordinal)
			}
		}
		if label != "" {
			parts[i] = "[" + label + "] " + s.Text
		} else {
			parts[i] = s.Text
		}
	}
	return strings.Join(parts, "\n\n")
}
