package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/cache"
	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/export"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/pipeline"
)

var (
	matchWorks         string
	matchORCID         string
	matchMinConfidence float64
	matchBibTeX        string
	matchEnrich        bool
	matchPrescreen     bool
	matchBackend       string
	matchWorkers       int
)

var matchCmd = &cobra.Command{
	Use:   "match <file>",
	Short: "Match references against known works",
	Long: `Segment the input, extract every reference and match it against a set of
known works, read from a file (--works) or fetched from an ORCID profile
(--orcid).

A reference is matched when its best confidence is at least
--min-confidence (0-100). References without a usable title are dropped.

With --bibtex the unmatched references are also written as BibTeX, ready to
be imported into the profile. --enrich looks unmatched references up in
OpenAlex first to fill in missing metadata.

Examples:
  refmatch match cv.pdf --orcid 0000-0002-1825-0097
  refmatch match refs.txt --works works.jsonl --min-confidence 80 --human
  refmatch match refs.txt --orcid 0000-0002-1825-0097 --enrich --bibtex missing.bib`,
	Args: cobra.ExactArgs(1),
	Run:  runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchWorks, "works", "", "Known works file (JSON array or JSONL)")
	matchCmd.Flags().StringVar(&matchORCID, "orcid", "", "Fetch known works from this ORCID iD")
	matchCmd.Flags().Float64Var(&matchMinConfidence, "min-confidence", 0, "Matching threshold 0-100 (default from config)")
	matchCmd.Flags().StringVar(&matchBibTeX, "bibtex", "", "Write unmatched references as BibTeX to this file ('-' for stdout)")
	matchCmd.Flags().BoolVar(&matchEnrich, "enrich", false, "Look unmatched references up in OpenAlex")
	matchCmd.Flags().BoolVar(&matchPrescreen, "prescreen", false, "Skip spans that do not look like references")
	matchCmd.Flags().StringVar(&matchBackend, "backend", "", "Use only this backend (grobid, onnx, openai, rules)")
	matchCmd.Flags().IntVar(&matchWorkers, "workers", 0, "Concurrent extractions (default from config)")
	matchCmd.MarkFlagsMutuallyExclusive("works", "orcid")
	matchCmd.MarkFlagsOneRequired("works", "orcid")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	minConfidence := cfg.MinConfidence
	if cmd.Flags().Changed("min-confidence") {
		minConfidence = matchMinConfidence
	}
	if err := match.ValidateThreshold(minConfidence); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	text := mustReadInput(args[0])

	store := mustOpenCache(ctx, cfg)
	defer store.Close()

	var records []candidate.Record
	if matchWorks != "" {
		var err error
		records, err = candidate.LoadFile(matchWorks)
		if err != nil {
			exitWithError(ExitDataError, "loading works: %v", err)
		}
	} else {
		profile, err := cache.NewProfiles(store, newORCIDClient(cfg)).FetchProfile(ctx, matchORCID)
		if err != nil {
			exitWithErr("fetching ORCID profile", err)
		}
		records = profile.Records()
	}

	ext := mustOpenExtractor(ctx, cfg, matchBackend, store)
	defer extract.Close(ext)

	report, err := pipeline.Run(ctx, ext, text, records, pipeline.Options{
		MinConfidence: minConfidence,
		Workers:       workerCount(matchWorkers, cfg),
		Prescreen:     matchPrescreen || cfg.Prescreen.Enabled,
		MinLength:     cfg.Prescreen.MinLength,
		Progress:      progressFunc(),
	})
	if err != nil {
		exitWithErr("matching references", err)
	}

	if matchEnrich {
		if err := pipeline.Enrich(ctx, newOpenAlexClient(cfg), report); err != nil {
			exitWithErr("enriching references", err)
		}
	}

	if matchBibTeX != "" {
		bib := export.Unmatched(report)
		if matchBibTeX == "-" {
			fmt.Print(bib)
			return
		}
		if err := os.WriteFile(matchBibTeX, []byte(bib), 0o644); err != nil {
			exitWithError(ExitError, "writing BibTeX: %v", err)
		}
	}

	if humanOutput {
		outputHuman("%s", formatReportHuman(report))
		return
	}
	outputJSON(report)
}

// formatReportHuman renders a match report as a summary followed by the
// matched and unmatched references.
func formatReportHuman(report *pipeline.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Backend: %s, threshold: %.0f\n", report.Backend, report.MinConfidence)
	fmt.Fprintf(&sb, "%d segmented, %d matched, %d unmatched, %d dropped",
		report.Segmented, len(report.Matched), len(report.Unmatched), report.Dropped)
	if len(report.Rejected) > 0 {
		fmt.Fprintf(&sb, ", %d rejected", len(report.Rejected))
	}
	sb.WriteString("\n")

	if len(report.Matched) > 0 {
		sb.WriteString("\nMatched:\n")
		for _, r := range report.Matched {
			writeResultHuman(&sb, r, report)
		}
	}
	if len(report.Unmatched) > 0 {
		sb.WriteString("\nUnmatched:\n")
		for _, r := range report.Unmatched {
			writeResultHuman(&sb, r, report)
		}
	}
	return sb.String()
}

func writeResultHuman(sb *strings.Builder, r match.Result, report *pipeline.Report) {
	n := r.Reference.Normalized
	title := n.OrigTitle
	if title == "" {
		title = n.Title
	}
	fmt.Fprintf(sb, "  #%d [%5.1f] %s (%s)\n", r.Reference.Ordinal, r.Confidence,
		truncateString(title, DetailTitleMaxLen), orDash(n.Year))
	if r.Candidate != nil {
		fmt.Fprintf(sb, "         best: %s (%s)\n",
			truncateString(r.Candidate.DisplayTitle, DetailTitleMaxLen), orDash(r.Candidate.Year))
	}
	if w, ok := report.EnrichmentFor(r.Reference.Ordinal); ok {
		fmt.Fprintf(sb, "         openalex: %s %s\n", w.ID, orDash(w.DOI))
	}
}
