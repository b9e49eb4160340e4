package onnx

import (
	"math"
	"strings"

	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/reference"
)

// token is one classified model token with its byte offsets in the source text.
type token struct {
	Label string // "O", "B-TITLE", "I-TITLE", ...
	Prob  float64
	Start int
	End   int
}

// decodeBIO groups tagged tokens into entity spans.
//
// A B- tag opens a span, and I- tags of the same type extend it. An I- tag
// that does not continue the open span opens a new one. Tokens without
// offsets (special tokens) and labels outside the field set are skipped.
// The span score is the mean of its token probabilities.
func decodeBIO(text string, tokens []token) []extract.Span {
	var (
		spans   []extract.Span
		open    bool
		field   reference.Field
		start   int
		end     int
		probSum float64
		nTokens int
	)

	closeSpan := func() {
		if !open {
			return
		}
		if s := strings.TrimSpace(slice(text, start, end)); s != "" {
			spans = append(spans, extract.Span{
				Label: field,
				Text:  s,
				Start: start,
				End:   end,
				Score: probSum / float64(nTokens),
			})
		}
		open = false
	}

	for _, t := range tokens {
		if t.End <= t.Start {
			continue
		}

		prefix, kind := splitTag(t.Label)
		f, err := reference.ParseField(kind)
		if prefix == "" || err != nil {
			closeSpan()
			continue
		}

		if prefix == "I" && open && f == field {
			end = t.End
			probSum += t.Prob
			nTokens++
			continue
		}

		closeSpan()
		open = true
		field = f
		start, end = t.Start, t.End
		probSum = t.Prob
		nTokens = 1
	}
	closeSpan()

	return spans
}

// splitTag splits "B-TITLE" into ("B", "TITLE"). "O" and malformed tags give ("", "").
func splitTag(tag string) (string, string) {
	prefix, kind, ok := strings.Cut(tag, "-")
	if !ok || (prefix != "B" && prefix != "I") {
		return "", ""
	}
	return prefix, kind
}

func slice(text string, start, end int) string {
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))
	return text[start:end]
}

// softmaxArgmax returns the index and probability of the largest logit.
func softmaxArgmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return 0, 0
	}
	best := 0
	maxLogit := float64(logits[0])
	for i, v := range logits {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
			best = i
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v) - maxLogit)
	}
	return best, 1 / sum
}
