// Package match scores extracted references against known works and
// classifies each reference as matched or unmatched.
package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/reference"
)

// FieldScores holds the per-field similarity, each in [0,100].
type FieldScores struct {
	Title   float64 `json:"title"`
	Year    float64 `json:"year"`
	Journal float64 `json:"journal"`
	DOI     float64 `json:"doi"`
}

// Weights is a weighting of the field scores.
type Weights struct {
	Title   float64
	Year    float64
	Journal float64
	DOI     float64
}

var (
	// WithDOI applies when both sides carry a DOI.
	WithDOI = Weights{Title: 0.4, Year: 0.1, Journal: 0.1, DOI: 0.4}

	// WithoutDOI applies otherwise; the DOI score is ignored.
	WithoutDOI = Weights{Title: 0.6, Year: 0.2, Journal: 0.2}
)

// Score computes the confidence that ref and w describe the same work.
func Score(ref reference.Normalized, w candidate.Work) (float64, FieldScores) {
	var s FieldScores

	if ref.Title != "" && w.Title != "" {
		s.Title = TokenSortRatio(ref.Title, w.Title)
	}
	if ref.Year != "" && w.Year != "" && sameYear(ref.Year, w.Year) {
		s.Year = 100
	}
	if ref.Journal != "" && w.Journal != "" {
		s.Journal = PartialRatio(ref.Journal, w.Journal)
	}

	bothDOI := ref.DOI != "" && w.DOI != ""
	if bothDOI && strings.EqualFold(ref.DOI, w.DOI) {
		s.DOI = 100
	}

	weights := WithoutDOI
	if bothDOI {
		weights = WithDOI
	}
	return clamp(weights.apply(s)), s
}

func (wt Weights) apply(s FieldScores) float64 {
	return s.Title*wt.Title + s.Year*wt.Year + s.Journal*wt.Journal + s.DOI*wt.DOI
}

// sameYear compares two years as integers, so "2019.0" equals "2019".
func sameYear(a, b string) bool {
	ya, ok := yearValue(a)
	if !ok {
		return false
	}
	yb, ok := yearValue(b)
	if !ok {
		return false
	}
	return ya == yb
}

func yearValue(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(100, x))
}
