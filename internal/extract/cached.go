package extract

import (
	"context"
	"encoding/hex"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/reference"
)

// EntityStore persists extraction results keyed by content hash.
type EntityStore interface {
	GetEntities(ctx context.Context, key string) (reference.EntityBag, bool, error)
	PutEntities(ctx context.Context, key string, bag reference.EntityBag) error
}

// CachedExtractor serves repeated references from an EntityStore.
// Store failures are logged and otherwise ignored.
type CachedExtractor struct {
	inner Extractor
	store EntityStore
}

// Cached wraps ext with store.
func Cached(ext Extractor, store EntityStore) *CachedExtractor {
	return &CachedExtractor{inner: ext, store: store}
}

// Name returns the wrapped backend's name.
func (c *CachedExtractor) Name() string { return c.inner.Name() }

// ConcurrencySafe follows the wrapped backend.
func (c *CachedExtractor) ConcurrencySafe() bool { return isConcurrencySafe(c.inner) }

// Close closes the wrapped backend.
func (c *CachedExtractor) Close() error { return Close(c.inner) }

// Extract returns the cached bag for text, extracting and storing it on a miss.
func (c *CachedExtractor) Extract(ctx context.Context, text string) (reference.EntityBag, error) {
	logger := logging.FromContext(ctx)
	key := CacheKey(c.inner.Name(), text)

	bag, ok, err := c.store.GetEntities(ctx, key)
	switch {
	case err != nil:
		metrics.CacheRequestsTotal.WithLabelValues("entities", "error").Inc()
		logger.Warn("entity cache lookup failed", zap.Error(err))
	case ok:
		metrics.CacheRequestsTotal.WithLabelValues("entities", "hit").Inc()
		return bag, nil
	default:
		metrics.CacheRequestsTotal.WithLabelValues("entities", "miss").Inc()
	}

	bag, err = c.inner.Extract(ctx, text)
	if err != nil {
		return bag, err
	}
	if err := c.store.PutEntities(ctx, key, bag); err != nil {
		logger.Warn("entity cache store failed", zap.Error(err))
	}
	return bag, nil
}

// CacheKey is the BLAKE2b-256 hex digest of the backend name and text.
func CacheKey(backend, text string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
