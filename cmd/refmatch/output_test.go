package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/openalex"
	"github.com/matsen/refmatch/internal/orcid"
	"github.com/matsen/refmatch/internal/pipeline"
	"github.com/matsen/refmatch/internal/reference"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"no backend", fmt.Errorf("selecting: %w", extract.ErrNoBackend), ExitBackendUnavailable},
		{"invalid config", fmt.Errorf("%w: workers must be positive", config.ErrInvalid), ExitConfigError},
		{"threshold", fmt.Errorf("%w: got 101", match.ErrInvalidThreshold), ExitConfigError},
		{"bad orcid", fmt.Errorf("%w: %q", orcid.ErrInvalidID, "x"), ExitDataError},
		{"orcid not found", &orcid.APIError{StatusCode: 404}, ExitNotFound},
		{"openalex not found", fmt.Errorf("%w: doi", openalex.ErrNotFound), ExitNotFound},
		{"orcid rate limit", &orcid.APIError{StatusCode: 429}, ExitAPIError},
		{"orcid server error", &orcid.APIError{StatusCode: 502}, ExitAPIError},
		{"orcid network", fmt.Errorf("%w: dial", orcid.ErrNetworkError), ExitAPIError},
		{"openalex upstream", fmt.Errorf("%w: status 500", openalex.ErrAPIError), ExitAPIError},
		{"cancelled", context.Canceled, ExitError},
		{"other", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title here", 10, "a longe..."},
		{"Müller über Ärger", 8, "Mülle..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatReportHuman(t *testing.T) {
	work := candidate.Work{Title: "emotions in storybooks", Year: "2019", DisplayTitle: "Emotions in storybooks"}
	report := &pipeline.Report{
		Backend:       "rules",
		MinConfidence: 70,
		Segmented:     3,
		Dropped:       1,
		Matched: []match.Result{{
			Reference: reference.Reference{
				Ordinal:    1,
				Normalized: reference.Normalized{Title: "emotions in storybooks", OrigTitle: "Emotions in storybooks", Year: "2019"},
			},
			Candidate:      &work,
			Confidence:     100,
			Classification: match.Matched,
		}},
		Unmatched: []match.Result{{
			Reference: reference.Reference{
				Ordinal:    2,
				Normalized: reference.Normalized{Title: "a different topic"},
			},
			Classification: match.Unmatched,
		}},
		Enrichments: []pipeline.Enrichment{{
			Ordinal: 2,
			Work:    openalex.Work{ID: "https://openalex.org/W1", DOI: "10.1/x"},
		}},
	}

	got := formatReportHuman(report)
	for _, want := range []string{
		"Backend: rules, threshold: 70",
		"3 segmented, 1 matched, 1 unmatched, 1 dropped",
		"#1 [100.0] Emotions in storybooks (2019)",
		"best: Emotions in storybooks (2019)",
		"#2 [  0.0] a different topic (-)",
		"openalex: https://openalex.org/W1 10.1/x",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatReportHuman() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "rejected") {
		t.Errorf("formatReportHuman() mentions rejected spans when there are none:\n%s", got)
	}
}
