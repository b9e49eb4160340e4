package orcid

import (
	"regexp"
	"strings"

	"github.com/matsen/refmatch/internal/candidate"
)

var (
	doiURLPattern = regexp.MustCompile(`(?i)doi\.org/(10\.\d{4,9}/\S+)`)
	doiPattern    = regexp.MustCompile(`(?i)(10\.\d{4,9}/\S+)`)
)

func mapRecord(id string, rec *apiRecord) *Profile {
	profile := &Profile{ORCID: id, Publications: []Publication{}}

	if name := rec.Person.Name; name != nil {
		profile.Name = strings.TrimSpace(value(name.GivenNames) + " " + value(name.FamilyName))
	}

	for _, group := range rec.ActivitiesSummary.Works.Group {
		if len(group.WorkSummary) == 0 {
			continue
		}
		profile.Publications = append(profile.Publications, mapSummary(group.WorkSummary[0]))
	}
	profile.Count = len(profile.Publications)
	return profile
}

func mapSummary(s apiWorkSummary) Publication {
	pub := Publication{
		PutCode:      s.PutCode,
		Type:         s.Type,
		JournalTitle: value(s.JournalTitle),
		URL:          value(s.URL),
		Visibility:   s.Visibility,
	}
	if s.Title != nil {
		pub.Title = value(s.Title.Title)
	}
	if s.PublicationDate != nil {
		pub.Year = value(s.PublicationDate.Year)
	}
	if s.LastModifiedDate != nil {
		pub.ModifiedDate = s.LastModifiedDate.Value
	}
	if s.Source != nil {
		pub.ModifiedBy = value(s.Source.SourceName)
	}
	if s.ExternalIDs != nil {
		for _, ext := range s.ExternalIDs.ExternalID {
			id := ExternalID{
				Type:  ext.Type,
				Value: ext.Value,
				URL:   value(ext.URL),
				DOI:   externalDOI(ext),
			}
			if pub.DOI == "" {
				pub.DOI = id.DOI
			}
			pub.ExternalIDs = append(pub.ExternalIDs, id)
		}
	}
	return pub
}

// externalDOI finds a DOI in an external id: the normalized value of a doi
// id, then a doi.org URL, then any DOI-shaped substring.
func externalDOI(ext apiExternalID) string {
	if strings.EqualFold(ext.Type, "doi") {
		if v := value(ext.Normalized); v != "" {
			return v
		}
	}
	if m := doiURLPattern.FindStringSubmatch(ext.Value); m != nil {
		return m[1]
	}
	if m := doiPattern.FindStringSubmatch(ext.Value); m != nil {
		return m[1]
	}
	return ""
}

func value(v *apiValue) string {
	if v == nil {
		return ""
	}
	return v.Value
}

// Records converts publications to candidate records. Empty fields become
// absent values.
func (p *Profile) Records() []candidate.Record {
	records := make([]candidate.Record, len(p.Publications))
	for i, pub := range p.Publications {
		records[i] = candidate.Record{
			Title:           optional(pub.Title),
			PublicationYear: optional(pub.Year),
			JournalTitle:    optional(pub.JournalTitle),
			DOI:             optional(pub.DOI),
		}
	}
	return records
}

func optional(s string) candidate.Text {
	if s == "" {
		return candidate.Text{}
	}
	return candidate.NewText(s)
}
