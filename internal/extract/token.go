package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/matsen/refmatch/internal/reference"
)

// Span is a labelled piece of reference text produced by a token classifier.
// Start and End are byte offsets into the classified text.
type Span struct {
	Label reference.Field
	Text  string
	Start int
	End   int
	Score float64
}

// TokenClassifier labels pieces of a reference with entity fields.
type TokenClassifier interface {
	Classify(ctx context.Context, text string) ([]Span, error)
}

// TokenPipeline adapts a TokenClassifier into an Extractor by sorting,
// merging and grouping its spans.
type TokenPipeline struct {
	name       string
	classifier TokenClassifier
	concurrent bool
}

// NewTokenPipeline wraps classifier under the given backend name.
func NewTokenPipeline(name string, classifier TokenClassifier, concurrencySafe bool) *TokenPipeline {
	return &TokenPipeline{name: name, classifier: classifier, concurrent: concurrencySafe}
}

// Name returns the backend name.
func (p *TokenPipeline) Name() string { return p.name }

// ConcurrencySafe reports whether the classifier may be shared across goroutines.
func (p *TokenPipeline) ConcurrencySafe() bool { return p.concurrent }

// Close closes the classifier if it holds resources.
func (p *TokenPipeline) Close() error {
	if c, ok := p.classifier.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Extract classifies text and groups the merged spans into a bag.
func (p *TokenPipeline) Extract(ctx context.Context, text string) (reference.EntityBag, error) {
	spans, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return reference.EntityBag{}, fmt.Errorf("classifying reference: %w", err)
	}
	return GroupSpans(MergeSpans(text, spans)), nil
}

// neverMerged labels keep each span separate so a "12(3)" pair stays two values.
var neverMerged = map[reference.Field]bool{
	reference.Volume: true,
	reference.Issue:  true,
}

// MergeSpans sorts spans by start offset and merges neighbours that share a
// label and are at most one byte apart. VOLUME and ISSUE are never merged.
// The gap between merged spans is taken from text when the offsets allow it.
func MergeSpans(text string, spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Span{sorted[0]}
	for _, next := range sorted[1:] {
		prev := &merged[len(merged)-1]
		gap := next.Start - prev.End
		if next.Label != prev.Label || neverMerged[next.Label] || gap > 1 {
			merged = append(merged, next)
			continue
		}

		joiner := ""
		if gap == 1 && prev.End >= 0 && next.Start <= len(text) {
			joiner = text[prev.End:next.Start]
		}
		prev.Text = prev.Text + joiner + next.Text
		prev.End = max(prev.End, next.End)
		prev.Score = max(prev.Score, next.Score)
	}
	return merged
}

// GroupSpans collects span texts per label, in span order.
func GroupSpans(spans []Span) reference.EntityBag {
	var bag reference.EntityBag
	for _, s := range spans {
		if !s.Label.Valid() || s.Text == "" {
			continue
		}
		bag.Add(s.Label, s.Text)
	}
	return bag
}
