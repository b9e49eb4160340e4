package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/cache"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/extract/backends"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/pipeline"
	"github.com/matsen/refmatch/internal/server"
)

const (
	serverReadTimeout  = 30 * time.Second
	serverWriteTimeout = 5 * time.Minute
	shutdownTimeout    = 15 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching pipeline over HTTP",
	Long: `Serve segmentation, extraction and matching as a JSON HTTP API.

Endpoints:
  POST /v1/segment   {"text": ...}
  POST /v1/extract   {"text": ..., "prescreen": bool}
  POST /v1/match     {"text": ..., "works": [...] | "orcid": ..., "min_confidence": n}
  GET  /v1/backends
  GET  /healthz
  GET  /metrics

The server starts even when no extraction backend is available; extraction
and matching then answer 503.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()
	ctx, cancel := commandContext(logger)
	defer cancel()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	metrics.Register()

	store := mustOpenCache(ctx, cfg)
	defer store.Close()

	list, err := backends.FromConfig(cfg, "")
	if err != nil {
		exitWithErr("configuring backends", err)
	}

	var entities extract.EntityStore
	if cfg.Extract.Cache {
		entities = cache.Entities(store)
	}
	ext, err := backends.Open(ctx, cfg, "", entities)
	switch {
	case errors.Is(err, extract.ErrNoBackend):
		logger.Warn("no extraction backend available", zap.Error(err))
	case err != nil:
		exitWithErr("selecting extraction backend", err)
	default:
		logger.Info("backend selected", zap.String("backend", ext.Name()))
		defer extract.Close(ext)
	}

	srv := &http.Server{
		Addr: addr,
		Handler: server.New(server.Config{
			Logger:    logger,
			Extractor: ext,
			Backends:  list,
			Profiles:  cache.NewProfiles(store, newORCIDClient(cfg)),
			Defaults: pipeline.Options{
				MinConfidence: cfg.MinConfidence,
				Workers:       cfg.Extract.Workers,
				Prescreen:     cfg.Prescreen.Enabled,
				MinLength:     cfg.Prescreen.MinLength,
			},
		}).Handler(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		exitWithError(ExitError, "serving HTTP: %v", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}
