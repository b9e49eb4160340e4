// Package config loads refmatch configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Extraction backend names, in default priority order.
const (
	BackendGrobid = "grobid"
	BackendONNX   = "onnx"
	BackendOpenAI = "openai"
	BackendRules  = "rules"
)

// Cache drivers.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// KnownBackends lists every backend name accepted in extract.backends.
var KnownBackends = []string{BackendGrobid, BackendONNX, BackendOpenAI, BackendRules}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the refmatch configuration file, usually
// $XDG_CONFIG_HOME/refmatch/config.yml.
type Config struct {
	MinConfidence float64         `yaml:"min_confidence"`
	Log           LogConfig       `yaml:"log"`
	Extract       ExtractConfig   `yaml:"extract"`
	Grobid        GrobidConfig    `yaml:"grobid"`
	ONNX          ONNXConfig      `yaml:"onnx"`
	OpenAI        OpenAIConfig    `yaml:"openai"`
	Prescreen     PrescreenConfig `yaml:"prescreen"`
	ORCID         ORCIDConfig     `yaml:"orcid"`
	OpenAlex      OpenAlexConfig  `yaml:"openalex"`
	Cache         CacheConfig     `yaml:"cache"`
	Server        ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Format string `yaml:"format"` // json or console
	Level  string `yaml:"level"`
}

type ExtractConfig struct {
	Backends []string `yaml:"backends"`
	Workers  int      `yaml:"workers"`
	Cache    bool     `yaml:"cache"` // cache entities in the sqlite store
}

type GrobidConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

type ONNXConfig struct {
	Library   string `yaml:"library"`
	Model     string `yaml:"model"`
	Tokenizer string `yaml:"tokenizer"`
	Labels    string `yaml:"labels"`
	MaxSeqLen int    `yaml:"max_seq_len"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

type PrescreenConfig struct {
	Enabled   bool `yaml:"enabled"`
	MinLength int  `yaml:"min_length"`
}

type ORCIDConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Token     string  `yaml:"token,omitempty"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
}

type OpenAlexConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Mailto    string  `yaml:"mailto,omitempty"`
	RateLimit float64 `yaml:"rate_limit"`
}

type CacheConfig struct {
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path"`
	TTL    Duration    `yaml:"ttl"`
	Redis  RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Duration is a time.Duration written as "30s" or "24h" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MinConfidence: 70,
		Log:           LogConfig{Format: "json", Level: "info"},
		Extract: ExtractConfig{
			Backends: slices.Clone(KnownBackends),
			Workers:  1,
		},
		Grobid: GrobidConfig{
			BaseURL: "http://localhost:8070",
			Timeout: Duration(30 * time.Second),
		},
		ONNX:      ONNXConfig{MaxSeqLen: 512},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Prescreen: PrescreenConfig{MinLength: 20},
		ORCID: ORCIDConfig{
			BaseURL:   "https://pub.orcid.org",
			RateLimit: 8,
		},
		OpenAlex: OpenAlexConfig{
			BaseURL:   "https://api.openalex.org",
			RateLimit: 10,
		},
		Cache: CacheConfig{
			Driver: CacheSQLite,
			Path:   filepath.Join(DefaultCacheDir(), "cache.db"),
			TTL:    Duration(24 * time.Hour),
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 100 {
		invalid("min_confidence %v outside [0, 100]", c.MinConfidence)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		invalid("log.format %q (want json or console)", c.Log.Format)
	}
	if len(c.Extract.Backends) == 0 {
		invalid("extract.backends is empty")
	}
	for _, b := range c.Extract.Backends {
		if !slices.Contains(KnownBackends, b) {
			invalid("unknown backend %q (known: %s)", b, strings.Join(KnownBackends, ", "))
		}
	}
	if c.Extract.Workers < 1 {
		invalid("extract.workers must be at least 1, got %d", c.Extract.Workers)
	}
	if c.Grobid.Timeout < 0 {
		invalid("grobid.timeout is negative")
	}
	if c.ORCID.RateLimit <= 0 || c.OpenAlex.RateLimit <= 0 {
		invalid("rate limits must be positive")
	}
	switch c.Cache.Driver {
	case CacheSQLite:
		if c.Cache.Path == "" {
			invalid("cache.path is required for the sqlite driver")
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			invalid("cache.redis.addr is required for the redis driver")
		}
	case CacheNone:
	default:
		invalid("cache.driver %q (want sqlite, redis or none)", c.Cache.Driver)
	}
	if c.Cache.TTL < 0 {
		invalid("cache.ttl is negative")
	}
	return errors.Join(errs...)
}

// DefaultCacheDir returns $XDG_CACHE_HOME/refmatch, falling back to ~/.cache/refmatch.
func DefaultCacheDir() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "refmatch")
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "refmatch")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
