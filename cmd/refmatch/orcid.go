package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/cache"
	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/orcid"
)

var orcidRecords bool

var orcidCmd = &cobra.Command{
	Use:   "orcid <orcid-id>",
	Short: "Fetch the publications of an ORCID profile",
	Long: `Fetch the public works of an ORCID profile.

Profiles are cached according to the cache settings. With --records the
works are written as JSONL records suitable for 'refmatch match --works'.

Examples:
  refmatch orcid 0000-0002-1825-0097
  refmatch orcid https://orcid.org/0000-0002-1825-0097 --human
  refmatch orcid 0000-0002-1825-0097 --records > works.jsonl`,
	Args: cobra.ExactArgs(1),
	Run:  runORCID,
}

func init() {
	orcidCmd.Flags().BoolVar(&orcidRecords, "records", false, "Output works as JSONL match records")
	rootCmd.AddCommand(orcidCmd)
}

func runORCID(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	store := mustOpenCache(ctx, cfg)
	defer store.Close()

	profile, err := cache.NewProfiles(store, newORCIDClient(cfg)).FetchProfile(ctx, args[0])
	if err != nil {
		exitWithErr("fetching ORCID profile", err)
	}

	switch {
	case orcidRecords:
		if err := candidate.WriteJSONL(os.Stdout, profile.Records()); err != nil {
			exitWithError(ExitError, "writing records: %v", err)
		}
	case humanOutput:
		printProfileHuman(profile)
	default:
		outputJSON(profile)
	}
}

func printProfileHuman(p *orcid.Profile) {
	outputHuman("%s  %s\n", p.ORCID, orDash(p.Name))
	outputHuman("%d works\n\n", len(p.Publications))
	for _, pub := range p.Publications {
		outputHuman("  %-4s  %s\n", orDash(pub.Year), truncateString(orDash(pub.Title), ListTitleMaxLen))
		if pub.JournalTitle != "" || pub.DOI != "" {
			outputHuman("        %s  %s\n", truncateString(orDash(pub.JournalTitle), 40), pub.DOI)
		}
	}
}
