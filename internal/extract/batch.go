package extract

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/reference"
)

// ProgressFunc is called after each completed reference with the number
// completed so far and the total.
type ProgressFunc func(done, total int)

// BatchOptions configures ExtractAll.
type BatchOptions struct {
	// Workers > 1 extracts references concurrently.
	Workers int

	// Progress is optional. Calls are serialized and done never decreases.
	Progress ProgressFunc
}

// ExtractAll extracts one bag per span, in span order.
//
// A failure on one reference never aborts the batch: the error (or panic)
// is logged and counted and that reference gets an empty bag. The only
// error returned is ctx's, checked between references.
func ExtractAll(ctx context.Context, ext Extractor, spans []reference.Span, opts BatchOptions) ([]reference.EntityBag, error) {
	bags := make([]reference.EntityBag, len(spans))
	if len(spans) == 0 {
		return bags, nil
	}

	tracker := &progress{fn: opts.Progress, total: len(spans)}

	if opts.Workers <= 1 {
		for i, span := range spans {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			bags[i] = extractOne(ctx, ext, span)
			tracker.step()
		}
		return bags, nil
	}

	// Backends that are not safe for concurrent use are serialized.
	var backendMu sync.Mutex
	serialize := !isConcurrencySafe(ext)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, span := range spans {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if serialize {
				backendMu.Lock()
				defer backendMu.Unlock()
			}
			bags[i] = extractOne(gctx, ext, span)
			tracker.step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bags, nil
}

// extractOne runs the extractor on one span, converting errors and panics
// into an empty bag.
func extractOne(ctx context.Context, ext Extractor, span reference.Span) (bag reference.EntityBag) {
	logger := logging.FromContext(ctx)
	backend := ext.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("extraction panicked",
				zap.String("backend", backend),
				zap.Int("ordinal", span.Ordinal),
				zap.Any("panic", r))
			metrics.ExtractionsTotal.WithLabelValues(backend, "panic").Inc()
			bag = reference.EntityBag{}
		}
	}()

	bag, err := ext.Extract(ctx, span.Text)
	metrics.ExtractionDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Warn("extraction failed",
			zap.String("backend", backend),
			zap.Int("ordinal", span.Ordinal),
			zap.Error(err))
		metrics.ExtractionsTotal.WithLabelValues(backend, "error").Inc()
		return reference.EntityBag{}
	}

	metrics.ExtractionsTotal.WithLabelValues(backend, "ok").Inc()
	logger.Debug("extracted reference",
		zap.String("backend", backend),
		zap.Int("ordinal", span.Ordinal),
		zap.Int("fields", len(bag.Fields())))
	return bag
}

type progress struct {
	mu    sync.Mutex
	fn    ProgressFunc
	done  int
	total int
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
}
