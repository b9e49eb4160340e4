// Package export writes references in formats other tools can import.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/matsen/refmatch/internal/openalex"
	"github.com/matsen/refmatch/internal/pipeline"
	"github.com/matsen/refmatch/internal/reference"
)

// Entry is one BibTeX record.
type Entry struct {
	Type   string
	Key    string
	Fields []Field
}

// Field is one BibTeX tag.
type Field struct {
	Name  string
	Value string
}

// FromReference builds an entry from extracted entities. Fields missing from
// the reference are filled from work when it is non-nil.
func FromReference(ref reference.Reference, work *openalex.Work) Entry {
	bag := ref.Entities
	title := ref.Normalized.OrigTitle
	journal := strings.TrimSpace(bag.First(reference.Journal))
	year := ref.Normalized.Year
	doi := ref.Normalized.DOI
	authors := bag.Get(reference.Authors)

	if work != nil {
		if title == "" {
			title = work.Title
		}
		if journal == "" {
			journal = work.Journal
		}
		if year == "" && work.Year > 0 {
			year = strconv.Itoa(work.Year)
		}
		if doi == "" {
			doi = work.DOI
		}
		if len(authors) == 0 {
			authors = work.Authors
		}
	}

	e := Entry{Type: entryType(journal, bag.First(reference.ISBN))}
	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			e.Fields = append(e.Fields, Field{Name: name, Value: value})
		}
	}

	add("author", strings.Join(authors, " and "))
	add("editor", strings.Join(bag.Get(reference.Editor), " and "))
	add("title", title)
	switch e.Type {
	case "inproceedings":
		add("booktitle", journal)
	case "article":
		add("journal", journal)
	}
	add("year", year)
	add("volume", bag.First(reference.Volume))
	add("number", bag.First(reference.Issue))
	add("pages", pages(bag.First(reference.PageFirst), bag.First(reference.PageLast)))
	add("doi", doi)
	add("issn", bag.First(reference.ISSN))
	add("isbn", bag.First(reference.ISBN))

	e.Key = citeKey(authors, year, title, ref.Ordinal)
	return e
}

// String renders the entry.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", e.Type, e.Key)
	for _, f := range e.Fields {
		value := f.Value
		if f.Name != "doi" {
			value = escapeLatex(value)
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", f.Name, value)
	}
	b.WriteString("}\n")
	return b.String()
}

// Unmatched renders every unmatched reference of report, using catalogue
// enrichments where present. Cite keys are made unique with a, b, ...
// suffixes.
func Unmatched(report *pipeline.Report) string {
	seen := map[string]int{}
	entries := make([]string, 0, len(report.Unmatched))
	for _, r := range report.Unmatched {
		var work *openalex.Work
		if w, ok := report.EnrichmentFor(r.Reference.Ordinal); ok {
			work = &w
		}
		e := FromReference(r.Reference, work)
		if n := seen[e.Key]; n > 0 {
			seen[e.Key]++
			e.Key += string(rune('a' + n - 1))
		} else {
			seen[e.Key] = 1
		}
		entries = append(entries, e.String())
	}
	return strings.Join(entries, "\n")
}

// entryType returns the BibTeX entry type for a container title.
func entryType(journal, isbn string) string {
	venue := strings.ToLower(journal)
	switch {
	case strings.Contains(venue, "proceedings"),
		strings.Contains(venue, "conference"),
		strings.Contains(venue, "workshop"),
		strings.Contains(venue, "symposium"):
		return "inproceedings"
	case journal != "":
		return "article"
	case isbn != "":
		return "book"
	}
	return "misc"
}

func pages(first, last string) string {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return first + last
	}
	return first + "--" + last
}

// citeKey builds surname + year + first title word, ASCII only, falling
// back to ref<ordinal>.
func citeKey(authors []string, year, title string, ordinal int) string {
	var surname string
	if len(authors) > 0 {
		surname = authors[0]
		if i := strings.IndexAny(surname, ","); i >= 0 {
			surname = surname[:i]
		} else if fields := strings.Fields(surname); len(fields) > 0 {
			surname = fields[len(fields)-1]
		}
	}
	var word string
	for _, w := range strings.Fields(title) {
		if w = asciiLetters(w); len(w) > 3 {
			word = w
			break
		}
	}

	surname = asciiLetters(surname)
	if surname == "" && word == "" {
		return fmt.Sprintf("ref%d", ordinal)
	}
	return surname + year + word
}

// asciiLetters folds accents and keeps lower-case ASCII letters.
func asciiLetters(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
