package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/refmatch/internal/reference"
)

func TestParseEntities(t *testing.T) {
	bag, err := ParseEntities("```json\n" + `{
		"TITLE": ["Emotions in storybooks"],
		"AUTHORS": ["Nikolajeva, M.", " "],
		"PUBLICATION_YEAR": 2019,
		"VOLUME": ["12", 3],
		"PUBLISHER": ["ignored"]
	}` + "\n```")
	require.NoError(t, err)

	assert.Equal(t, []string{"Emotions in storybooks"}, bag.Get(reference.Title))
	assert.Equal(t, []string{"Nikolajeva, M."}, bag.Get(reference.Authors))
	assert.Equal(t, "2019", bag.First(reference.PublicationYear))
	assert.Equal(t, []string{"12", "3"}, bag.Get(reference.Volume))

	_, err = ParseEntities("not json")
	assert.Error(t, err)
}

func newFakeProvider(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`))
		case "/v1/chat/completions":
			var req struct {
				Model string `json:"model"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"TITLE\":[\"A title\"],\"DOI\":[\"10.1/x\"]}"},"finish_reason":"stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestExtractor(t *testing.T) {
	srv := newFakeProvider(t, http.StatusOK)
	defer srv.Close()

	ext, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, "openai", ext.Name())

	ctx := context.Background()
	require.NoError(t, ext.HealthCheck(ctx))

	bag, err := ext.Extract(ctx, "Doe, J. A title. doi:10.1/x")
	require.NoError(t, err)
	assert.Equal(t, "A title", bag.First(reference.Title))
	assert.Equal(t, "10.1/x", bag.First(reference.DOI))
}

func TestExtractorErrors(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, ErrNoAPIKey))

	srv := newFakeProvider(t, http.StatusUnauthorized)
	defer srv.Close()

	ext, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	assert.True(t, errors.Is(ext.HealthCheck(context.Background()), ErrProvider))

	_, err = ext.Extract(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrProvider))
}
