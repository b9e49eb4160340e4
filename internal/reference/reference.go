package reference

// Span is one reference as cut from the source text.
type Span struct {
	Text string `json:"text"`

	// Ordinal is the 1-based position of the span in the source.
	Ordinal int `json:"ordinal"`

	// Label is the number printed in the source ("12" for "[12]"), if any.
	Label string `json:"label,omitempty"`
}

// Normalized is the lower-cased projection of a reference used for scoring.
type Normalized struct {
	Title     string `json:"title"`
	OrigTitle string `json:"orig_title,omitempty"`
	Year      string `json:"year"`
	Journal   string `json:"journal"`
	DOI       string `json:"doi"`
}

// Reference is a span together with its extracted entities.
type Reference struct {
	Ordinal    int        `json:"ordinal"`
	Label      string     `json:"label,omitempty"`
	RawText    string     `json:"raw_text"`
	Entities   EntityBag  `json:"entities"`
	Normalized Normalized `json:"normalized"`
}
