package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/cache"
	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/extract/backends"
	"github.com/matsen/refmatch/internal/input"
	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/openalex"
	"github.com/matsen/refmatch/internal/orcid"
)

// mustReadInput reads the reference text from path ("-" for stdin), exits on error.
func mustReadInput(path string) string {
	text, err := input.ReadFile(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}
	return text
}

// mustOpenExtractor selects the extraction backend, exits when none is
// available. only restricts the choice to a single backend.
// The caller is responsible for calling extract.Close on the result.
func mustOpenExtractor(ctx context.Context, cfg *config.Config, only string, store cache.Store) extract.Extractor {
	var entities extract.EntityStore
	if cfg.Extract.Cache && store != nil {
		entities = cache.Entities(store)
	}

	ext, err := backends.Open(ctx, cfg, only, entities)
	if err != nil {
		exitWithErr("selecting extraction backend", err)
	}
	logging.FromContext(ctx).Info("backend selected", zap.String("backend", ext.Name()))
	return ext
}

// workerCount returns the --workers value when set, else the configured one.
func workerCount(flag int, cfg *config.Config) int {
	if flag > 0 {
		return flag
	}
	return cfg.Extract.Workers
}

// progressFunc reports extraction progress on stderr in human mode.
func progressFunc() extract.ProgressFunc {
	if !humanOutput {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rExtracting %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func newORCIDClient(cfg *config.Config) *orcid.Client {
	opts := []orcid.ClientOption{
		orcid.WithBaseURL(cfg.ORCID.BaseURL),
		orcid.WithRateLimit(cfg.ORCID.RateLimit),
	}
	if cfg.ORCID.Token != "" {
		opts = append(opts, orcid.WithToken(cfg.ORCID.Token))
	}
	return orcid.NewClient(opts...)
}

func newOpenAlexClient(cfg *config.Config) *openalex.Client {
	opts := []openalex.ClientOption{
		openalex.WithBaseURL(cfg.OpenAlex.BaseURL),
		openalex.WithRateLimit(cfg.OpenAlex.RateLimit),
	}
	if cfg.OpenAlex.Mailto != "" {
		opts = append(opts, openalex.WithMailto(cfg.OpenAlex.Mailto))
	}
	return openalex.NewClient(opts...)
}
