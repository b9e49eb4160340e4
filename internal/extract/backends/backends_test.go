package backends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/extract/llm"
	"github.com/matsen/refmatch/internal/reference"
)

func TestFromConfigOrder(t *testing.T) {
	cfg := config.Default()
	list, err := FromConfig(cfg, "")
	require.NoError(t, err)

	var names []string
	for _, b := range list {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"grobid", "onnx", "openai", "rules"}, names)

	list, err = FromConfig(cfg, " Rules ")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "rules", list[0].Name)

	_, err = FromConfig(cfg, "spacy")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestFallsBackToRules(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	cfg := config.Default()
	cfg.Grobid.BaseURL = down.URL
	cfg.OpenAI.APIKey = ""

	list, err := FromConfig(cfg, "")
	require.NoError(t, err)

	results := extract.ProbeAll(context.Background(), list...)
	require.Len(t, results, 4)
	assert.False(t, results[0].Available)
	assert.False(t, results[1].Available)
	assert.False(t, results[2].Available)
	assert.Contains(t, results[2].Error, llm.ErrNoAPIKey.Error())
	assert.True(t, results[3].Available)

	ext, err := extract.Select(context.Background(), list...)
	require.NoError(t, err)
	assert.Equal(t, "rules", ext.Name())
}

func TestGrobidSelectedWhenAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/isalive" {
			_, _ = w.Write([]byte("true"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Grobid.BaseURL = srv.URL

	ext, err := Open(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "grobid", ext.Name())
}

func TestOpenNoBackend(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = ""
	_, err := Open(context.Background(), cfg, "openai", nil)
	assert.ErrorIs(t, err, extract.ErrNoBackend)
}

type nopStore struct{}

func (nopStore) GetEntities(context.Context, string) (reference.EntityBag, bool, error) {
	return reference.EntityBag{}, false, nil
}
func (nopStore) PutEntities(context.Context, string, reference.EntityBag) error { return nil }

func TestOpenWrapsStore(t *testing.T) {
	ext, err := Open(context.Background(), config.Default(), "rules", nopStore{})
	require.NoError(t, err)
	_, ok := ext.(*extract.CachedExtractor)
	assert.True(t, ok)
	assert.Equal(t, "rules", ext.Name())
}
