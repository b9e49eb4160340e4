package match

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/reference"
)

// DefaultMinConfidence is the default inclusive threshold for a match.
const DefaultMinConfidence = 70.0

// ErrInvalidThreshold is returned for thresholds outside [0,100].
var ErrInvalidThreshold = errors.New("min confidence must be between 0 and 100")

// Classification is the outcome for one reference.
type Classification string

const (
	Matched   Classification = "matched"
	Unmatched Classification = "unmatched"
)

// Result is the outcome of matching one reference.
// Candidate and Scores describe the best work found, even when unmatched.
type Result struct {
	Reference      reference.Reference `json:"reference"`
	Candidate      *candidate.Work     `json:"candidate,omitempty"`
	Confidence     float64             `json:"confidence"`
	Scores         FieldScores         `json:"scores"`
	Classification Classification      `json:"classification"`
}

// Results splits results by classification, each in reference order.
type Results struct {
	Matched   []Result `json:"matched"`
	Unmatched []Result `json:"unmatched"`
}

// Len returns the total number of classified references.
func (r Results) Len() int {
	return len(r.Matched) + len(r.Unmatched)
}

// ValidateThreshold checks that t is a percentage.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// Match scores every reference against every work and classifies it.
//
// References without a normalized title are dropped. Works without a title
// are never candidates. The first work with the strictly highest confidence
// wins, and a reference is matched when that confidence is at least
// minConfidence.
func Match(refs []reference.Reference, works []candidate.Work, minConfidence float64) Results {
	results := Results{
		Matched:   []Result{},
		Unmatched: []Result{},
	}

	for _, ref := range refs {
		if ref.Normalized.Title == "" {
			continue
		}

		r := Best(ref, works)
		if r.Candidate != nil && r.Confidence >= minConfidence {
			r.Classification = Matched
			results.Matched = append(results.Matched, r)
		} else {
			r.Classification = Unmatched
			results.Unmatched = append(results.Unmatched, r)
		}
	}

	byOrdinal(results.Matched)
	byOrdinal(results.Unmatched)
	return results
}

func byOrdinal(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Reference.Ordinal < rs[j].Reference.Ordinal
	})
}

// Best returns the highest scoring work for ref, unclassified.
// A work scoring 0 is never selected.
func Best(ref reference.Reference, works []candidate.Work) Result {
	result := Result{Reference: ref}

	for i := range works {
		if works[i].Title == "" {
			continue
		}
		confidence, scores := Score(ref.Normalized, works[i])
		if confidence > result.Confidence {
			result.Confidence = confidence
			result.Scores = scores
			result.Candidate = &works[i]
		}
	}

	return result
}
