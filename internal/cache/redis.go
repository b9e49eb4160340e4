package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/matsen/refmatch/internal/orcid"
)

// profilePrefix namespaces profile keys.
const profilePrefix = "refmatch:profile:"

// RedisConfig holds connection parameters for a Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis stores profiles in Redis with a key expiry.
type Redis struct {
	client rueidis.Client
	ttl    time.Duration
}

// OpenRedis connects to Redis and checks it with PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating redis client: %w", err)
	}

	r := NewRedis(client, cfg.TTL)
	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

// NewRedis wraps an existing client.
func NewRedis(client rueidis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() error {
	r.client.Close()
	return nil
}

// GetProfile returns the stored profile or ErrMiss.
func (r *Redis) GetProfile(ctx context.Context, id string) (*orcid.Profile, error) {
	cmd := r.client.B().Get().Key(profilePrefix + id).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	var p orcid.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}
	return &p, nil
}

// PutProfile stores p with the configured expiry.
func (r *Redis) PutProfile(ctx context.Context, p *orcid.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	var cmd rueidis.Completed
	if r.ttl > 0 {
		cmd = r.client.B().Set().Key(profilePrefix + p.ORCID).Value(string(data)).Ex(r.ttl).Build()
	} else {
		cmd = r.client.B().Set().Key(profilePrefix + p.ORCID).Value(string(data)).Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("storing profile: %w", err)
	}
	return nil
}

// Clear deletes every profile key.
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		cmd := r.client.B().Scan().Cursor(cursor).Match(profilePrefix + "*").Count(100).Build()
		res, err := r.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scanning profiles: %w", err)
		}
		if len(res.Elements) > 0 {
			if err := r.client.Do(ctx, r.client.B().Del().Key(res.Elements...).Build()).Error(); err != nil {
				return fmt.Errorf("deleting profiles: %w", err)
			}
		}
		cursor = res.Cursor
		if cursor == 0 {
			return nil
		}
	}
}
