package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("CHAPTERQA_TEST_KEY", "sk-test")
	c, err := NewClient(Config{
		BaseURL:   srv.URL + "/v1/",
		APIKeyEnv: "CHAPTERQA_TEST_KEY",
		Model:     "text-embedding-3-small",
	})
	require.NoError(t, err)
	return c
}

func TestClient_Embed(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	})

	assert.Equal(t, 0, c.Dimension())
	v, err := c.Embed(context.Background(), "cell division")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.5, 1}, v)
	assert.Equal(t, 3, c.Dimension())
	assert.Equal(t, "cell division", got["input"])
	assert.Equal(t, "text-embedding-3-small", got["model"])
}

func TestClient_EmbedServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	})

	_, err := c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestClient_EmbedEmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m","usage":{"prompt_tokens":0,"total_tokens":0}}`))
	})

	_, err := c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("CHAPTERQA_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "CHAPTERQA_EMPTY_KEY"})
	assert.Error(t, err)
}
