package orcid

// Profile is the subset of an ORCID record used for matching.
type Profile struct {
	ORCID        string        `json:"orcid"`
	Name         string        `json:"name"`
	Count        int           `json:"count"`
	Publications []Publication `json:"publications"`
}

// Publication is the representative summary of one ORCID work group.
type Publication struct {
	PutCode      int64        `json:"put-code,omitempty"`
	Title        string       `json:"title"`
	Type         string       `json:"type,omitempty"`
	JournalTitle string       `json:"journal-title,omitempty"`
	Year         string       `json:"publication-year,omitempty"`
	URL          string       `json:"url,omitempty"`
	DOI          string       `json:"doi,omitempty"`
	Visibility   string       `json:"visibility,omitempty"`
	ModifiedDate int64        `json:"modified-date,omitempty"` // epoch milliseconds
	ModifiedBy   string       `json:"modified-by,omitempty"`
	ExternalIDs  []ExternalID `json:"external-ids,omitempty"`
}

// ExternalID is one identifier attached to a work.
type ExternalID struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
	DOI   string `json:"doi,omitempty"`
}

// Wire format of GET /v3.0/{orcid}/record, reduced to the fields read.

type apiValue struct {
	Value string `json:"value"`
}

type apiDate struct {
	Year *apiValue `json:"year"`
}

type apiTimestamp struct {
	Value int64 `json:"value"`
}

type apiRecord struct {
	Person struct {
		Name *struct {
			GivenNames *apiValue `json:"given-names"`
			FamilyName *apiValue `json:"family-name"`
		} `json:"name"`
	} `json:"person"`
	ActivitiesSummary struct {
		Works struct {
			Group []struct {
				WorkSummary []apiWorkSummary `json:"work-summary"`
			} `json:"group"`
		} `json:"works"`
	} `json:"activities-summary"`
}

type apiWorkSummary struct {
	PutCode int64 `json:"put-code"`
	Title   *struct {
		Title *apiValue `json:"title"`
	} `json:"title"`
	Type             string        `json:"type"`
	JournalTitle     *apiValue     `json:"journal-title"`
	PublicationDate  *apiDate      `json:"publication-date"`
	URL              *apiValue     `json:"url"`
	Visibility       string        `json:"visibility"`
	LastModifiedDate *apiTimestamp `json:"last-modified-date"`
	Source           *struct {
		SourceName *apiValue `json:"source-name"`
	} `json:"source"`
	ExternalIDs *struct {
		ExternalID []apiExternalID `json:"external-id"`
	} `json:"external-ids"`
}

type apiExternalID struct {
	Type       string    `json:"external-id-type"`
	Value      string    `json:"external-id-value"`
	Normalized *apiValue `json:"external-id-normalized"`
	URL        *apiValue `json:"external-id-url"`
}
