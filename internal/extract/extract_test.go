package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/refmatch/internal/reference"
)

// fakeExtractor returns the title-cased text as TITLE. Texts listed in
// fail return an error and texts listed in panics panic.
type fakeExtractor struct {
	name   string
	safe   bool
	fail   map[string]bool
	panics map[string]bool
	calls  atomic.Int32
	active atomic.Int32
	maxPar atomic.Int32
}

func (f *fakeExtractor) Name() string          { return f.name }
func (f *fakeExtractor) ConcurrencySafe() bool { return f.safe }

func (f *fakeExtractor) Extract(_ context.Context, text string) (reference.EntityBag, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxPar.Load()
		if n <= cur || f.maxPar.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.panics[text] {
		panic("boom")
	}
	if f.fail[text] {
		return reference.EntityBag{}, errors.New("backend failure")
	}
	var bag reference.EntityBag
	bag.Add(reference.Title, strings.ToUpper(text))
	return bag, nil
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	opened := []string{}
	backend := func(name string, probeErr, openErr error) Backend {
		return Backend{
			Name:  name,
			Probe: func(context.Context) error { return probeErr },
			Open: func(context.Context) (Extractor, error) {
				opened = append(opened, name)
				if openErr != nil {
					return nil, openErr
				}
				return &fakeExtractor{name: name}, nil
			},
		}
	}

	t.Run("first available wins", func(t *testing.T) {
		opened = opened[:0]
		ext, err := Select(ctx,
			backend("grobid", errors.New("connection refused"), nil),
			backend("onnx", nil, errors.New("model missing")),
			backend("rules", nil, nil),
			backend("never", nil, nil),
		)
		require.NoError(t, err)
		assert.Equal(t, "rules", ext.Name())
		assert.Equal(t, []string{"onnx", "rules"}, opened)
	})

	t.Run("none available", func(t *testing.T) {
		_, err := Select(ctx,
			backend("grobid", errors.New("connection refused"), nil),
			backend("onnx", nil, errors.New("model missing")),
		)
		require.ErrorIs(t, err, ErrNoBackend)
		assert.Contains(t, err.Error(), "grobid: connection refused")
		assert.Contains(t, err.Error(), "onnx: opening: model missing")
	})

	t.Run("none configured", func(t *testing.T) {
		_, err := Select(ctx)
		assert.ErrorIs(t, err, ErrNoBackend)
	})

	t.Run("nil probe counts as available", func(t *testing.T) {
		ext, err := Select(ctx, Backend{
			Name: "rules",
			Open: func(context.Context) (Extractor, error) { return &fakeExtractor{name: "rules"}, nil },
		})
		require.NoError(t, err)
		assert.Equal(t, "rules", ext.Name())
	})
}

func TestProbeAll(t *testing.T) {
	results := ProbeAll(context.Background(),
		Backend{Name: "grobid", Probe: func(context.Context) error { return errors.New("down") }},
		Backend{Name: "rules"},
	)
	assert.Equal(t, []ProbeResult{
		{Name: "grobid", Available: false, Error: "down"},
		{Name: "rules", Available: true},
	}, results)
}

type closingExtractor struct {
	fakeExtractor
	closed bool
}

func (c *closingExtractor) Close() error {
	c.closed = true
	return nil
}

func TestClose(t *testing.T) {
	c := &closingExtractor{}
	require.NoError(t, Close(c))
	assert.True(t, c.closed)
	assert.NoError(t, Close(&fakeExtractor{}))
}

func spansOf(texts ...string) []reference.Span {
	spans := make([]reference.Span, len(texts))
	for i, text := range texts {
		spans[i] = reference.Span{Text: text, Ordinal: i + 1}
	}
	return spans
}

func TestExtractAllSequential(t *testing.T) {
	ext := &fakeExtractor{
		name:   "fake",
		fail:   map[string]bool{"b": true},
		panics: map[string]bool{"c": true},
	}

	var seen []int
	bags, err := ExtractAll(context.Background(), ext, spansOf("a", "b", "c", "d"), BatchOptions{
		Progress: func(done, total int) {
			assert.Equal(t, 4, total)
			seen = append(seen, done)
		},
	})
	require.NoError(t, err)
	require.Len(t, bags, 4)

	assert.Equal(t, "A", bags[0].First(reference.Title))
	assert.True(t, bags[1].IsEmpty())
	assert.True(t, bags[2].IsEmpty())
	assert.Equal(t, "D", bags[3].First(reference.Title))
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestExtractAllConcurrent(t *testing.T) {
	texts := make([]string, 40)
	for i := range texts {
		texts[i] = fmt.Sprintf("ref %d", i)
	}

	for _, safe := range []bool{true, false} {
		t.Run(fmt.Sprintf("safe=%v", safe), func(t *testing.T) {
			ext := &fakeExtractor{name: "fake", safe: safe, fail: map[string]bool{"ref 7": true}}

			var mu sync.Mutex
			last := 0
			bags, err := ExtractAll(context.Background(), ext, spansOf(texts...), BatchOptions{
				Workers: 4,
				Progress: func(done, total int) {
					mu.Lock()
					defer mu.Unlock()
					assert.Greater(t, done, last)
					last = done
				},
			})
			require.NoError(t, err)
			require.Len(t, bags, len(texts))

			for i, bag := range bags {
				if i == 7 {
					assert.True(t, bag.IsEmpty())
					continue
				}
				assert.Equal(t, strings.ToUpper(texts[i]), bag.First(reference.Title))
			}
			assert.Equal(t, len(texts), last)
			if !safe {
				assert.Equal(t, int32(1), ext.maxPar.Load())
			}
		})
	}
}

func TestExtractAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := &fakeExtractor{name: "fake"}
	_, err := ExtractAll(ctx, ext, spansOf("a", "b"), BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ext.calls.Load())

	_, err = ExtractAll(ctx, ext, spansOf("a", "b"), BatchOptions{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractAllEmpty(t *testing.T) {
	bags, err := ExtractAll(context.Background(), &fakeExtractor{}, nil, BatchOptions{Workers: 3})
	require.NoError(t, err)
	assert.Empty(t, bags)
}
