package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/openalex"
)

// Lookup finds catalogue metadata for a reference.
type Lookup interface {
	LookupByDOI(ctx context.Context, doi string) (*openalex.Work, error)
	SearchByTitle(ctx context.Context, title, journal, author string) (*openalex.Work, error)
}

// Enrichment is catalogue metadata found for an unmatched reference.
// It fills display fields only and never affects scores.
type Enrichment struct {
	Ordinal int           `json:"ordinal"`
	Work    openalex.Work `json:"work"`
}

// Enrich looks up every unmatched reference of report, by DOI when one was
// extracted and by title otherwise. References not found are skipped;
// other lookup errors are logged and skipped too, except a cancelled
// context which stops the pass.
func Enrich(ctx context.Context, lookup Lookup, report *Report) error {
	logger := logging.FromContext(ctx)

	for _, r := range report.Unmatched {
		if err := ctx.Err(); err != nil {
			return err
		}

		work, err := lookupOne(ctx, lookup, r)
		switch {
		case err == nil:
			report.Enrichments = append(report.Enrichments, Enrichment{Ordinal: r.Reference.Ordinal, Work: *work})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case openalex.IsNotFound(err):
			logger.Debug("no catalogue entry", zap.Int("ordinal", r.Reference.Ordinal))
		default:
			logger.Warn("catalogue lookup failed", zap.Int("ordinal", r.Reference.Ordinal), zap.Error(err))
		}
	}
	return nil
}

func lookupOne(ctx context.Context, lookup Lookup, r match.Result) (*openalex.Work, error) {
	n := r.Reference.Normalized
	if n.DOI != "" {
		work, err := lookup.LookupByDOI(ctx, n.DOI)
		if err == nil || !openalex.IsNotFound(err) {
			return work, err
		}
	}
	return lookup.SearchByTitle(ctx, n.OrigTitle, n.Journal, "")
}

// EnrichmentFor returns the enrichment recorded for ordinal, if any.
func (r *Report) EnrichmentFor(ordinal int) (openalex.Work, bool) {
	for _, e := range r.Enrichments {
		if e.Ordinal == ordinal {
			return e.Work, true
		}
	}
	return openalex.Work{}, false
}
