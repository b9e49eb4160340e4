// Package extract recognizes bibliographic entities in reference text.
//
// Several backends can satisfy the Extractor interface. Select probes them
// in priority order and opens the first one that is available.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/refmatch/internal/reference"
)

// ErrNoBackend is returned when no extraction backend is available.
var ErrNoBackend = errors.New("no extraction backend available")

// Extractor turns the text of one reference into an EntityBag.
type Extractor interface {
	Extract(ctx context.Context, text string) (reference.EntityBag, error)
	Name() string
}

// ConcurrencySafe is implemented by extractors that may be called from
// several goroutines at once.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// Closer is implemented by extractors holding resources.
type Closer interface {
	Close() error
}

// Backend describes a selectable extraction backend.
type Backend struct {
	Name string

	// Probe returns nil when the backend can be opened.
	Probe func(ctx context.Context) error

	// Open constructs the extractor. It is only called after a successful Probe.
	Open func(ctx context.Context) (Extractor, error)
}

// ProbeResult records the availability of one backend.
type ProbeResult struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Select probes backends in order and opens the first available one.
// If none can be opened the returned error wraps ErrNoBackend and every
// individual failure.
func Select(ctx context.Context, backends ...Backend) (Extractor, error) {
	var failures []error
	for _, b := range backends {
		if b.Probe != nil {
			if err := b.Probe(ctx); err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", b.Name, err))
				continue
			}
		}
		ext, err := b.Open(ctx)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: opening: %w", b.Name, err))
			continue
		}
		return ext, nil
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: none configured", ErrNoBackend)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(failures...))
}

// ProbeAll reports the availability of every backend without opening any.
func ProbeAll(ctx context.Context, backends ...Backend) []ProbeResult {
	results := make([]ProbeResult, len(backends))
	for i, b := range backends {
		results[i] = ProbeResult{Name: b.Name, Available: true}
		if b.Probe == nil {
			continue
		}
		if err := b.Probe(ctx); err != nil {
			results[i].Available = false
			results[i].Error = err.Error()
		}
	}
	return results
}

// Close releases ext if it holds resources.
func Close(ext Extractor) error {
	if c, ok := ext.(Closer); ok {
		return c.Close()
	}
	return nil
}

func isConcurrencySafe(ext Extractor) bool {
	cs, ok := ext.(ConcurrencySafe)
	return ok && cs.ConcurrencySafe()
}
