package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/extract/backends"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Show which extraction backends are available",
	Long: `Probe every configured extraction backend, in priority order.

The first available backend is the one extract and match will use.`,
	Args: cobra.NoArgs,
	Run:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	list, err := backends.FromConfig(cfg, "")
	if err != nil {
		exitWithErr("configuring backends", err)
	}
	results := extract.ProbeAll(ctx, list...)

	if humanOutput {
		selected := false
		for _, r := range results {
			switch {
			case r.Available && !selected:
				outputHuman("* %-8s available\n", r.Name)
				selected = true
			case r.Available:
				outputHuman("  %-8s available\n", r.Name)
			default:
				outputHuman("  %-8s unavailable: %s\n", r.Name, r.Error)
			}
		}
		return
	}
	outputJSON(results)
}
