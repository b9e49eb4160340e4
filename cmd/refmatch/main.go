// Package main provides the refmatch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/cache"
	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (unknown flags, missing
		// arguments) would otherwise be swallowed.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refmatch",
	Short: "Match free-text references against known works",
	Long: `refmatch splits a reference list into individual references, extracts
their bibliographic fields and matches them against a set of known works,
such as the publications on an ORCID profile.

Extraction backends are tried in the configured order (grobid, onnx, openai,
rules); the first available one is used for the whole run.

All commands output JSON by default for agent consumption.
Use --human for human-readable output.

Environment Variables:
  OPENAI_API_KEY           API key for the openai backend
  ORCID_TOKEN              Optional ORCID read-public token
  REDIS_ADDR               Redis address when the cache driver is redis
  REFMATCH_MIN_CONFIDENCE  Default matching threshold
  REFMATCH_BACKENDS        Comma-separated backend order`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for OPENAI_API_KEY, ORCID_TOKEN)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/refmatch/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustNewLogger builds the logger configured in cfg, with --log-level taking
// precedence.
func mustNewLogger(cfg *config.Config) *zap.Logger {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(cfg.Log.Format, level)
	if err != nil {
		exitWithError(ExitConfigError, "creating logger: %v", err)
	}
	return logger
}

// commandContext returns a context carrying logger that is cancelled on
// SIGINT or SIGTERM.
func commandContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return logging.WithContext(ctx, logger), cancel
}

// mustOpenCache opens the configured cache store, exits on error.
// The caller is responsible for calling Close() on the returned store.
func mustOpenCache(ctx context.Context, cfg *config.Config) cache.Store {
	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		exitWithError(ExitConfigError, "opening cache: %v", err)
	}
	return store
}
