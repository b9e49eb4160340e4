// Package cache stores fetched profiles and extraction results between runs.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/orcid"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store caches ORCID profiles.
type Store interface {
	GetProfile(ctx context.Context, id string) (*orcid.Profile, error)
	PutProfile(ctx context.Context, p *orcid.Profile) error
	Clear(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case config.CacheSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		return OpenSQLite(cfg.Path, cfg.TTL.Std())
	case config.CacheRedis:
		return OpenRedis(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.TTL.Std(),
		})
	case config.CacheNone, "":
		return Nop{}, nil
	}
	return nil, fmt.Errorf("%w: cache driver %q", config.ErrInvalid, cfg.Driver)
}

// Entities returns s as an entity store when it can hold extraction
// results, or nil.
func Entities(s Store) extract.EntityStore {
	es, _ := s.(extract.EntityStore)
	return es
}

// Nop caches nothing.
type Nop struct{}

func (Nop) GetProfile(context.Context, string) (*orcid.Profile, error) { return nil, ErrMiss }
func (Nop) PutProfile(context.Context, *orcid.Profile) error         { return nil }
func (Nop) Clear(context.Context) error                              { return nil }
func (Nop) Close() error                                             { return nil }

// ProfileFetcher fetches a profile from its source.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id string) (*orcid.Profile, error)
}

// Profiles is a read-through ProfileFetcher backed by a Store. Store
// failures are logged and fall through to the source.
type Profiles struct {
	store  Store
	source ProfileFetcher
}

// NewProfiles wraps source with store.
func NewProfiles(store Store, source ProfileFetcher) *Profiles {
	return &Profiles{store: store, source: source}
}

// FetchProfile returns the cached profile for id or fetches and stores it.
func (p *Profiles) FetchProfile(ctx context.Context, id string) (*orcid.Profile, error) {
	id, err := orcid.ValidateID(id)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	profile, err := p.store.GetProfile(ctx, id)
	switch {
	case err == nil:
		metrics.CacheRequestsTotal.WithLabelValues("profiles", "hit").Inc()
		return profile, nil
	case errors.Is(err, ErrMiss):
		metrics.CacheRequestsTotal.WithLabelValues("profiles", "miss").Inc()
	default:
		metrics.CacheRequestsTotal.WithLabelValues("profiles", "error").Inc()
		logger.Warn("profile cache lookup failed", zap.String("orcid", id), zap.Error(err))
	}

	profile, err = p.source.FetchProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.store.PutProfile(ctx, profile); err != nil {
		logger.Warn("profile cache store failed", zap.String("orcid", id), zap.Error(err))
	}
	return profile, nil
}
