package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/openalex"
)

var (
	lookupDOI     string
	lookupTitle   string
	lookupJournal string
	lookupAuthor  string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look a work up in OpenAlex",
	Long: `Look a work up in OpenAlex by DOI or by title.

A title search returns the first result whose venue and authors contain
--journal and --author when given.

Examples:
  refmatch lookup --doi 10.1037/ppm0000185
  refmatch lookup --title "Emotions in storybooks" --journal "Popular Media" --human`,
	Args: cobra.NoArgs,
	Run:  runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupDOI, "doi", "", "DOI to resolve")
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "Title to search for")
	lookupCmd.Flags().StringVar(&lookupJournal, "journal", "", "Require the venue to contain this text")
	lookupCmd.Flags().StringVar(&lookupAuthor, "author", "", "Require an author name to contain this text")
	lookupCmd.MarkFlagsMutuallyExclusive("doi", "title")
	lookupCmd.MarkFlagsOneRequired("doi", "title")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	client := newOpenAlexClient(cfg)

	var (
		work *openalex.Work
		err  error
	)
	if lookupDOI != "" {
		work, err = client.LookupByDOI(ctx, lookupDOI)
	} else {
		work, err = client.SearchByTitle(ctx, lookupTitle, lookupJournal, lookupAuthor)
	}
	if err != nil {
		exitWithErr("looking up work", err)
	}

	if humanOutput {
		printWorkHuman(work)
		return
	}
	outputJSON(work)
}

func printWorkHuman(w *openalex.Work) {
	outputHuman("%s\n", truncateString(orDash(w.Title), DetailTitleMaxLen))
	if len(w.Authors) > 0 {
		authors := w.Authors
		suffix := ""
		if len(authors) > 3 {
			authors, suffix = authors[:3], ", et al."
		}
		outputHuman("  %s%s\n", strings.Join(authors, ", "), suffix)
	}
	year := "-"
	if w.Year > 0 {
		year = strconv.Itoa(w.Year)
	}
	outputHuman("  %s (%s)\n", orDash(w.Journal), year)
	outputHuman("  DOI: %s\n", orDash(w.DOI))
	outputHuman("  OpenAlex: %s, cited by %d\n", w.ID, w.CitedByCount)
}
