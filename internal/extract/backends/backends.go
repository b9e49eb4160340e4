// Package backends builds the configured extraction backends.
package backends

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/extract/grobid"
	"github.com/matsen/refmatch/internal/extract/llm"
	"github.com/matsen/refmatch/internal/extract/onnx"
	"github.com/matsen/refmatch/internal/extract/rules"
)

// probeTimeout bounds each network availability check.
const probeTimeout = 3 * time.Second

// FromConfig returns the backends named in cfg.Extract.Backends, in order.
// A non-empty only restricts the list to that one backend.
func FromConfig(cfg *config.Config, only string) ([]extract.Backend, error) {
	names := cfg.Extract.Backends
	if only = strings.ToLower(strings.TrimSpace(only)); only != "" {
		if !slices.Contains(config.KnownBackends, only) {
			return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, only)
		}
		names = []string{only}
	}

	backends := make([]extract.Backend, 0, len(names))
	for _, name := range names {
		b, err := build(cfg, name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}

func build(cfg *config.Config, name string) (extract.Backend, error) {
	switch name {
	case config.BackendGrobid:
		newClient := func() *grobid.Client {
			return grobid.New(
				grobid.WithBaseURL(cfg.Grobid.BaseURL),
				grobid.WithHTTPClient(&http.Client{Timeout: cfg.Grobid.Timeout.Std()}),
			)
		}
		return extract.Backend{
			Name: name,
			Probe: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, probeTimeout)
				defer cancel()
				return newClient().IsAvailable(ctx)
			},
			Open: func(context.Context) (extract.Extractor, error) {
				return newClient(), nil
			},
		}, nil

	case config.BackendONNX:
		onnxCfg := onnx.Config{
			LibraryPath:   cfg.ONNX.Library,
			ModelPath:     cfg.ONNX.Model,
			TokenizerPath: cfg.ONNX.Tokenizer,
			LabelsPath:    cfg.ONNX.Labels,
			MaxSeqLen:     cfg.ONNX.MaxSeqLen,
		}
		return extract.Backend{
			Name:  name,
			Probe: func(context.Context) error { return onnx.Probe(onnxCfg) },
			Open: func(context.Context) (extract.Extractor, error) {
				return onnx.NewExtractor(onnxCfg)
			},
		}, nil

	case config.BackendOpenAI:
		llmCfg := llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}
		return extract.Backend{
			Name: name,
			Probe: func(ctx context.Context) error {
				ext, err := llm.New(llmCfg)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(ctx, probeTimeout)
				defer cancel()
				return ext.HealthCheck(ctx)
			},
			Open: func(context.Context) (extract.Extractor, error) {
				return llm.New(llmCfg)
			},
		}, nil

	case config.BackendRules:
		return extract.Backend{
			Name: name,
			Open: func(context.Context) (extract.Extractor, error) {
				return rules.NewExtractor(), nil
			},
		}, nil
	}
	return extract.Backend{}, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, name)
}

// Open selects the first available backend from cfg and wraps it with store
// when store is non-nil.
func Open(ctx context.Context, cfg *config.Config, only string, store extract.EntityStore) (extract.Extractor, error) {
	list, err := FromConfig(cfg, only)
	if err != nil {
		return nil, err
	}
	ext, err := extract.Select(ctx, list...)
	if err != nil {
		return nil, err
	}
	if store != nil {
		return extract.Cached(ext, store), nil
	}
	return ext, nil
}
