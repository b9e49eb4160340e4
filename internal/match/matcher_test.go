package match

import (
	"errors"
	"math"
	"testing"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/reference"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ref(ordinal int, title, year, journal, doi string) reference.Reference {
	return reference.Reference{
		Ordinal: ordinal,
		RawText: title,
		Normalized: reference.Normalized{
			Title:   title,
			Year:    year,
			Journal: journal,
			DOI:     doi,
		},
	}
}

func TestScoreExactMatch(t *testing.T) {
	r := ref(1, "emotions in storybooks", "2019", "psychology of popular media culture", "10.1037/ppm0000185")
	w := candidate.Work{
		Title:   "emotions in storybooks",
		Year:    "2019",
		Journal: "psychology of popular media culture",
		DOI:     "10.1037/PPM0000185",
	}

	conf, s := Score(r.Normalized, w)
	if s.Title != 100 || s.Year != 100 || s.Journal != 100 || s.DOI != 100 {
		t.Errorf("unexpected field scores: %+v", s)
	}
	if !approx(conf, 100) {
		t.Errorf("confidence = %v, want 100", conf)
	}

	results := Match([]reference.Reference{r}, []candidate.Work{w}, 90)
	if len(results.Matched) != 1 || len(results.Unmatched) != 0 {
		t.Fatalf("expected 1 match, got %d matched / %d unmatched", len(results.Matched), len(results.Unmatched))
	}
	if results.Matched[0].Classification != Matched {
		t.Errorf("classification = %q", results.Matched[0].Classification)
	}
}

func TestScoreWeightSwitch(t *testing.T) {
	r := ref(1, "emotions in storybooks", "", "", "10.1/a")

	// Both DOIs present but different: title weighted 0.4, DOI scores 0.
	conf, s := Score(r.Normalized, candidate.Work{Title: "emotions in storybooks", DOI: "10.1/b"})
	if s.DOI != 0 {
		t.Errorf("different DOIs scored %v", s.DOI)
	}
	if !approx(conf, 40) {
		t.Errorf("confidence with both DOIs = %v, want 40", conf)
	}

	// Candidate without DOI: title weighted 0.6.
	conf, s = Score(r.Normalized, candidate.Work{Title: "emotions in storybooks"})
	if s.DOI != 0 {
		t.Errorf("missing DOI scored %v", s.DOI)
	}
	if !approx(conf, 60) {
		t.Errorf("confidence without candidate DOI = %v, want 60", conf)
	}
}

func TestScoreYear(t *testing.T) {
	tests := []struct {
		refYear, workYear string
		want              float64
	}{
		{"2019", "2019", 100},
		{"2019", "2019.0", 100},
		{"2019", "2020", 0},
		{"2019", "", 0},
		{"", "2019", 0},
		{"2019", "n.d.", 0},
	}
	for _, tt := range tests {
		_, s := Score(reference.Normalized{Year: tt.refYear}, candidate.Work{Year: tt.workYear})
		if s.Year != tt.want {
			t.Errorf("year score(%q, %q) = %v, want %v", tt.refYear, tt.workYear, s.Year, tt.want)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	refs := []reference.Normalized{
		{},
		{Title: "a"},
		{Title: "emotions in storybooks", Year: "2019", Journal: "psychology", DOI: "10.1/x"},
	}
	works := []candidate.Work{
		{},
		{Title: "a", Year: "2019", Journal: "psychology of things", DOI: "10.1/x"},
		{Title: "something else entirely", DOI: "10.1/y"},
	}
	for _, r := range refs {
		for _, w := range works {
			conf, s := Score(r, w)
			for _, v := range []float64{conf, s.Title, s.Year, s.Journal, s.DOI} {
				if v < 0 || v > 100 {
					t.Errorf("Score(%+v, %+v) produced out of range value %v", r, w, v)
				}
			}
		}
	}
}

func TestMatchThresholdIsInclusive(t *testing.T) {
	refs := []reference.Reference{ref(1, "emotions in storybooks", "", "", "")}
	works := []candidate.Work{{Title: "emotions in storybooks", DisplayTitle: "Emotions in storybooks"}}

	results := Match(refs, works, 60)
	if len(results.Matched) != 1 {
		t.Fatalf("confidence equal to threshold should match, got %+v", results)
	}

	results = Match(refs, works, 60.5)
	if len(results.Unmatched) != 1 {
		t.Fatalf("confidence below threshold should not match, got %+v", results)
	}
	u := results.Unmatched[0]
	if u.Candidate == nil || u.Candidate.DisplayTitle != "Emotions in storybooks" {
		t.Error("unmatched result should keep the best candidate")
	}
	if !approx(u.Confidence, 60) || u.Scores.Title != 100 {
		t.Errorf("unmatched result lost scores: %+v", u)
	}
}

func TestMatchTieBreakFirstWins(t *testing.T) {
	refs := []reference.Reference{ref(1, "emotions in storybooks", "", "", "")}
	works := []candidate.Work{
		{Title: "unrelated xyz"},
		{Title: "emotions in storybooks", DisplayTitle: "first"},
		{Title: "storybooks in emotions", DisplayTitle: "second"},
	}

	for i := 0; i < 5; i++ {
		results := Match(refs, works, 50)
		if len(results.Matched) != 1 {
			t.Fatalf("expected 1 match, got %d", len(results.Matched))
		}
		if got := results.Matched[0].Candidate.DisplayTitle; got != "first" {
			t.Fatalf("tie should go to first candidate, got %q", got)
		}
	}
}

func TestMatchEmptyCandidates(t *testing.T) {
	refs := []reference.Reference{
		ref(1, "a title", "2019", "", ""),
		ref(2, "another title", "", "", "10.1/x"),
	}

	for _, works := range [][]candidate.Work{nil, {{Year: "2019"}}} {
		results := Match(refs, works, 0)
		if len(results.Matched) != 0 {
			t.Errorf("expected no matches, got %d", len(results.Matched))
		}
		if len(results.Unmatched) != 2 {
			t.Fatalf("expected 2 unmatched, got %d", len(results.Unmatched))
		}
		for _, u := range results.Unmatched {
			if u.Candidate != nil || u.Confidence != 0 || u.Scores != (FieldScores{}) {
				t.Errorf("expected empty unmatched result, got %+v", u)
			}
		}
	}
}

func TestMatchZeroScoreNeverSelected(t *testing.T) {
	refs := []reference.Reference{ref(1, "abc", "", "", "")}
	works := []candidate.Work{{Title: "xyz"}}

	results := Match(refs, works, 0)
	if len(results.Unmatched) != 1 || results.Unmatched[0].Candidate != nil {
		t.Errorf("zero-scoring work should not be selected: %+v", results)
	}
}

func TestMatchDropsUntitledReferencesAndKeepsOrder(t *testing.T) {
	refs := []reference.Reference{
		ref(1, "emotions in storybooks", "", "", ""),
		ref(2, "", "2019", "", "10.1/x"),
		ref(3, "unrelated words here", "", "", ""),
		ref(4, "emotions in storybooks", "", "", ""),
	}
	works := []candidate.Work{{Title: "emotions in storybooks"}}

	// A title-only match scores 0.6 * 100.
	results := Match(refs, works, 60)
	if results.Len() != 3 {
		t.Fatalf("expected 3 classified references, got %d", results.Len())
	}
	if len(results.Matched) != 2 || results.Matched[0].Reference.Ordinal != 1 || results.Matched[1].Reference.Ordinal != 4 {
		t.Errorf("matched order wrong: %+v", results.Matched)
	}
	if len(results.Unmatched) != 1 || results.Unmatched[0].Reference.Ordinal != 3 {
		t.Errorf("unmatched wrong: %+v", results.Unmatched)
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, v := range []float64{0, 70, 100} {
		if err := ValidateThreshold(v); err != nil {
			t.Errorf("ValidateThreshold(%v) unexpected error: %v", v, err)
		}
	}
	for _, v := range []float64{-1, 100.1, math.NaN()} {
		if err := ValidateThreshold(v); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("ValidateThreshold(%v) = %v, want ErrInvalidThreshold", v, err)
		}
	}
}
