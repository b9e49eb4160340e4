package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the profile and extraction cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached profile and extraction result",
	Args:  cobra.NoArgs,
	Run:   runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	store := mustOpenCache(ctx, cfg)
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		exitWithError(ExitError, "clearing cache: %v", err)
	}

	if humanOutput {
		outputHuman("Cleared %s cache\n", cfg.Cache.Driver)
		return
	}
	status := StatusResponse{Status: "cleared"}
	if cfg.Cache.Driver == config.CacheSQLite {
		status.Path = cfg.Cache.Path
	}
	outputJSON(status)
}
