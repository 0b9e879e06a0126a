package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// Return items out of order to verify reordering by index.
		json.NewEncoder(w).Encode(embedResponse{
			Model: "jina-embeddings-v3",
			Data: []embedItem{
				{Index: 1, Embedding: []float32{0, 1}},
				{Index: 0, Embedding: []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	vecs, err := c.Embed(context.Background(), []string{"shea butter", "retinol serum"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])

	assert.Equal(t, "jina-embeddings-v3", gotReq.Model)
	assert.Equal(t, []string{"shea butter", "retinol serum"}, gotReq.Input)
}

func TestEmbedEmptyInput(t *testing.T) {
	c := NewClient("test-key")
	vecs, err := c.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedRetriesOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{
			Data: []embedItem{{Index: 0, Embedding: []float32{1}}},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	vecs, err := c.Embed(context.Background(), []string{"shea butter"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vecs[0])
	assert.Equal(t, 2, attempts)
}

func TestEmbedNonRetryableStatus(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"input too long"}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	_, err := c.Embed(context.Background(), []string{"shea butter"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, 1, attempts, "422 is not retried")
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Data: []embedItem{{Index: 0, Embedding: []float32{1}}},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestEmbedBadIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Data: []embedItem{{Index: 5, Embedding: []float32{1}}},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestModel(t *testing.T) {
	assert.Equal(t, "jina-embeddings-v3", NewClient("k").Model())
	assert.Equal(t, "custom", NewClient("k", WithModel("custom")).Model())
}

func TestRetryableStatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		assert.True(t, retryableStatusCode(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, retryableStatusCode(code), "status %d", code)
	}
}
