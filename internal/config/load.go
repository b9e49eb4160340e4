package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the directory name under XDG_CONFIG_HOME.
	DirName = "refmatch"
	// FileName is the config file name.
	FileName = "config.yml"
)

var (
	cacheMu sync.Mutex
	cache   = map[string]*Config{}
)

// Path returns the default config file path.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/refmatch/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DirName, FileName)
}

// Load reads the config file at path (or Path() when empty), applies
// environment overrides and validates the result. A missing file yields the
// defaults. Results are cached per path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cfg, ok := cache[path]; ok {
		return cfg, nil
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	cfg.ONNX.Library = ExpandPath(cfg.ONNX.Library)
	cfg.ONNX.Model = ExpandPath(cfg.ONNX.Model)
	cfg.ONNX.Tokenizer = ExpandPath(cfg.ONNX.Tokenizer)
	cfg.ONNX.Labels = ExpandPath(cfg.ONNX.Labels)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache[path] = cfg
	return cfg, nil
}

// ResetCache clears cached configs.
// Useful for testing.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[string]*Config{}
}

// applyEnv overrides file values with REFMATCH_* and provider environment
// variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("REFMATCH_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: REFMATCH_MIN_CONFIDENCE: %v", ErrInvalid, err)
		}
		cfg.MinConfidence = f
	}
	if v := os.Getenv("REFMATCH_BACKENDS"); v != "" {
		var backends []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
				backends = append(backends, b)
			}
		}
		cfg.Extract.Backends = backends
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("ORCID_TOKEN"); v != "" {
		cfg.ORCID.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	return nil
}
