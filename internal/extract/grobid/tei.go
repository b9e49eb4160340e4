package grobid

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matsen/refmatch/internal/reference"
)

type biblStruct struct {
	Analytic struct {
		Titles  []title  `xml:"title"`
		Authors []person `xml:"author"`
		Idnos   []idno   `xml:"idno"`
	} `xml:"analytic"`
	Monogr struct {
		Titles  []title  `xml:"title"`
		Authors []person `xml:"author"`
		Editors []person `xml:"editor"`
		Idnos   []idno   `xml:"idno"`
		Imprint struct {
			Scopes []biblScope `xml:"biblScope"`
			Dates  []date      `xml:"date"`
		} `xml:"imprint"`
	} `xml:"monogr"`
	Idnos []idno `xml:"idno"`
}

type title struct {
	Level string `xml:"level,attr"`
	Text  string `xml:",chardata"`
}

type person struct {
	PersName struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
	Text string `xml:",chardata"`
}

type idno struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type biblScope struct {
	Unit string `xml:"unit,attr"`
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
	Text string `xml:",chardata"`
}

type date struct {
	When string `xml:"when,attr"`
	Text string `xml:",chardata"`
}

// ParseTEI maps a TEI biblStruct document to entity fields.
func ParseTEI(data []byte) (reference.EntityBag, error) {
	var bag reference.EntityBag
	if len(strings.TrimSpace(string(data))) == 0 {
		return bag, nil
	}

	var b biblStruct
	if err := xml.Unmarshal(data, &b); err != nil {
		return bag, fmt.Errorf("parsing TEI: %w", err)
	}

	articleTitle := titleAt(b.Analytic.Titles, "a")
	journalTitle := titleAt(b.Monogr.Titles, "j")
	if articleTitle == "" {
		articleTitle = titleAt(b.Monogr.Titles, "m")
	}
	add(&bag, reference.Title, articleTitle)
	add(&bag, reference.Journal, journalTitle)

	authors := b.Analytic.Authors
	if len(authors) == 0 {
		authors = b.Monogr.Authors
	}
	for _, a := range authors {
		add(&bag, reference.Authors, a.name())
	}
	for _, e := range b.Monogr.Editors {
		add(&bag, reference.Editor, e.name())
	}

	idnos := append(append(append([]idno{}, b.Analytic.Idnos...), b.Monogr.Idnos...), b.Idnos...)
	for _, id := range idnos {
		switch strings.ToUpper(id.Type) {
		case "DOI":
			add(&bag, reference.DOI, id.Value)
		case "ISSN", "EISSN":
			add(&bag, reference.ISSN, id.Value)
		case "ISBN":
			add(&bag, reference.ISBN, id.Value)
		}
	}

	for _, s := range b.Monogr.Imprint.Scopes {
		switch s.Unit {
		case "volume":
			add(&bag, reference.Volume, s.Text)
		case "issue":
			add(&bag, reference.Issue, s.Text)
		case "page":
			first, last := s.From, s.To
			if first == "" && last == "" {
				first, last, _ = strings.Cut(strings.TrimSpace(s.Text), "-")
			}
			add(&bag, reference.PageFirst, first)
			add(&bag, reference.PageLast, last)
		}
	}

	for _, d := range b.Monogr.Imprint.Dates {
		year := d.When
		if year == "" {
			year = d.Text
		}
		if len(year) > 4 {
			year = year[:4]
		}
		if add(&bag, reference.PublicationYear, year) {
			break
		}
	}

	return bag, nil
}

func titleAt(titles []title, level string) string {
	for _, t := range titles {
		if t.Level == level {
			return t.Text
		}
	}
	return ""
}

func (p person) name() string {
	surname := strings.TrimSpace(p.PersName.Surname)
	forenames := strings.TrimSpace(strings.Join(p.PersName.Forenames, " "))
	switch {
	case surname != "" && forenames != "":
		return surname + ", " + forenames
	case surname != "":
		return surname
	default:
		return strings.TrimSpace(p.Text)
	}
}

// add records a trimmed non-empty value and reports whether it did.
func add(bag *reference.EntityBag, f reference.Field, value string) bool {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return false
	}
	bag.Add(f, value)
	return true
}
