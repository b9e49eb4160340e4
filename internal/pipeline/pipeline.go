// Package pipeline runs the full reference matching flow: segmentation,
// extraction, post-processing, normalization and matching.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/entity"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/reference"
	"github.com/matsen/refmatch/internal/segment"
)

// Options configures Run.
type Options struct {
	MinConfidence float64

	// Workers > 1 extracts references concurrently.
	Workers int

	// Prescreen drops spans that do not look like references before
	// extraction. MinLength applies only when Prescreen is set.
	Prescreen bool
	MinLength int

	Progress extract.ProgressFunc
}

// Report is the outcome of one run.
type Report struct {
	RunID         string         `json:"run_id"`
	Backend       string         `json:"backend"`
	MinConfidence float64        `json:"min_confidence"`
	Segmented     int            `json:"segmented"`
	Matched       []match.Result `json:"matched"`
	Unmatched     []match.Result `json:"unmatched"`

	// Rejected lists spans dropped by the prescreen.
	Rejected []reference.Span `json:"rejected,omitempty"`

	// Dropped counts references without a usable title.
	Dropped int `json:"dropped"`

	Enrichments []Enrichment `json:"enrichments,omitempty"`
}

// Extract runs ext over spans and returns post-processed, normalized
// references in span order.
func Extract(ctx context.Context, ext extract.Extractor, spans []reference.Span, opts extract.BatchOptions) ([]reference.Reference, error) {
	bags, err := extract.ExtractAll(ctx, ext, spans, opts)
	if err != nil {
		return nil, err
	}

	refs := make([]reference.Reference, len(spans))
	for i, span := range spans {
		entity.Postprocess(&bags[i])
		refs[i] = entity.Normalize(span, bags[i])
	}
	return refs, nil
}

// Run segments text, extracts every reference with ext and matches the
// references against records.
func Run(ctx context.Context, ext extract.Extractor, text string, records []candidate.Record, opts Options) (*Report, error) {
	if err := match.ValidateThreshold(opts.MinConfidence); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := logging.FromContext(ctx).With(zap.String("run_id", runID))
	ctx = logging.WithContext(ctx, logger)
	start := time.Now()

	spans := segment.Segment(text)
	report := &Report{
		RunID:         runID,
		Backend:       ext.Name(),
		MinConfidence: opts.MinConfidence,
		Segmented:     len(spans),
	}

	if opts.Prescreen {
		spans, report.Rejected = Prescreen(spans, opts.MinLength)
		if len(report.Rejected) > 0 {
			logger.Info("prescreen rejected spans", zap.Int("rejected", len(report.Rejected)))
		}
	}

	refs, err := Extract(ctx, ext, spans, extract.BatchOptions{
		Workers:  opts.Workers,
		Progress: opts.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting references: %w", err)
	}

	works := candidate.Prepare(records)
	results := match.Match(refs, works, opts.MinConfidence)
	report.Matched = results.Matched
	report.Unmatched = results.Unmatched
	report.Dropped = len(refs) - results.Len()

	record(results)
	logger.Info("matched references",
		zap.String("backend", report.Backend),
		zap.Int("references", len(refs)),
		zap.Int("candidates", len(works)),
		zap.Int("matched", len(report.Matched)),
		zap.Int("unmatched", len(report.Unmatched)),
		zap.Int("dropped", report.Dropped),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func record(results match.Results) {
	for _, group := range [][]match.Result{results.Matched, results.Unmatched} {
		for _, r := range group {
			metrics.MatchResultsTotal.WithLabelValues(string(r.Classification)).Inc()
			metrics.MatchConfidence.Observe(r.Confidence)
		}
	}
}
