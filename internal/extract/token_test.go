package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/refmatch/internal/reference"
)

func TestMergeSpans(t *testing.T) {
	text := "Emotions in storybooks. 12(3)"
	spans := []Span{
		{Label: reference.Volume, Text: "12", Start: 24, End: 26, Score: 0.9},
		{Label: reference.Title, Text: "in storybooks", Start: 9, End: 22, Score: 0.7},
		{Label: reference.Title, Text: "Emotions", Start: 0, End: 8, Score: 0.8},
		{Label: reference.Issue, Text: "3", Start: 27, End: 28, Score: 0.9},
	}

	merged := MergeSpans(text, spans)
	require.Len(t, merged, 3)

	assert.Equal(t, "Emotions in storybooks", merged[0].Text)
	assert.Equal(t, 0, merged[0].Start)
	assert.Equal(t, 22, merged[0].End)
	assert.Equal(t, 0.8, merged[0].Score)
	assert.Equal(t, reference.Volume, merged[1].Label)
	assert.Equal(t, reference.Issue, merged[2].Label)
}

func TestMergeSpansKeepsVolumesApart(t *testing.T) {
	text := "12 13"
	merged := MergeSpans(text, []Span{
		{Label: reference.Volume, Text: "12", Start: 0, End: 2},
		{Label: reference.Volume, Text: "13", Start: 3, End: 5},
	})
	assert.Len(t, merged, 2)
}

func TestMergeSpansAdjacentAndDistant(t *testing.T) {
	text := "Smith-Jones and Doe"
	merged := MergeSpans(text, []Span{
		{Label: reference.Authors, Text: "Smith", Start: 0, End: 5},
		{Label: reference.Authors, Text: "-Jones", Start: 5, End: 11},
		{Label: reference.Authors, Text: "Doe", Start: 16, End: 19},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "Smith-Jones", merged[0].Text)
	assert.Equal(t, "Doe", merged[1].Text)

	assert.Nil(t, MergeSpans(text, nil))
}

func TestGroupSpans(t *testing.T) {
	bag := GroupSpans([]Span{
		{Label: reference.Authors, Text: "Smith, J."},
		{Label: reference.Title, Text: "A study"},
		{Label: reference.Authors, Text: "Doe, A."},
		{Label: reference.Authors, Text: ""},
		{Label: reference.Field(-1), Text: "junk"},
	})
	assert.Equal(t, []string{"Smith, J.", "Doe, A."}, bag.Get(reference.Authors))
	assert.Equal(t, "A study", bag.First(reference.Title))
	assert.Len(t, bag.Fields(), 2)
}

type stubClassifier struct {
	spans []Span
	err   error
}

func (s stubClassifier) Classify(context.Context, string) ([]Span, error) { return s.spans, s.err }

func TestTokenPipeline(t *testing.T) {
	p := NewTokenPipeline("stub", stubClassifier{spans: []Span{
		{Label: reference.PublicationYear, Text: "2019", Start: 0, End: 4},
	}}, true)

	assert.Equal(t, "stub", p.Name())
	assert.True(t, p.ConcurrencySafe())
	assert.NoError(t, p.Close())

	bag, err := p.Extract(context.Background(), "2019")
	require.NoError(t, err)
	assert.Equal(t, "2019", bag.First(reference.PublicationYear))

	failing := NewTokenPipeline("stub", stubClassifier{err: errors.New("bad input")}, false)
	_, err = failing.Extract(context.Background(), "x")
	assert.ErrorContains(t, err, "bad input")
}
