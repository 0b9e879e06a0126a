package embed

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records every batch it is asked to compute.
type fakeProvider struct {
	calls   [][]string
	vectors map[string][]float32
	err     error
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func (f *fakeProvider) Model() string { return "fake-model" }

type memStore struct {
	data   map[string][]float32
	getErr error
	putErr error
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]float32)} }

func (m *memStore) Get(key string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	vec, ok := m.data[key]
	return vec, ok, nil
}

func (m *memStore) Put(key string, vec []float32) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = vec
	return nil
}

func (m *memStore) Flush() error { return nil }

func TestEmbedBatchComputesOnlyMisses(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"shea butter": {1, 0},
		"body lotion": {0, 1},
	}}
	cache := NewCache(provider, newMemStore(), 2)

	vecs, err := cache.EmbedBatch(context.Background(), []string{"shea butter", "body lotion"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
	require.Len(t, provider.calls, 1)

	// Second batch overlaps: only the new text reaches the provider.
	vecs, err = cache.EmbedBatch(context.Background(), []string{"shea butter", "face mist"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	require.Len(t, provider.calls, 2)
	assert.Equal(t, []string{"face mist"}, provider.calls[1])
}

func TestEmbedBatchEmptyTextZeroVector(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, newMemStore(), 3)

	vecs, err := cache.EmbedBatch(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, vecs[0])
	assert.Empty(t, provider.calls, "empty text must not reach the provider")
}

func TestEmbedBatchWritesThroughToStore(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{"shea butter": {1, 0}}}
	st := newMemStore()
	cache := NewCache(provider, st, 2)

	_, err := cache.EmbedBatch(context.Background(), []string{"shea butter"})
	require.NoError(t, err)
	assert.Contains(t, st.data, "shea butter")

	// A fresh cache over the same store hits the store, not the provider.
	fresh := NewCache(&fakeProvider{}, st, 2)
	vecs, err := fresh.EmbedBatch(context.Background(), []string{"shea butter"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vecs[0])
}

func TestEmbedBatchStoreReadFailureIsMiss(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{"shea butter": {1, 0}}}
	st := newMemStore()
	st.getErr = eris.New("disk gone")
	cache := NewCache(provider, st, 2)

	vecs, err := cache.EmbedBatch(context.Background(), []string{"shea butter"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	require.Len(t, provider.calls, 1)
}

func TestEmbedBatchProviderError(t *testing.T) {
	provider := &fakeProvider{err: eris.New("api down")}
	cache := NewCache(provider, newMemStore(), 2)

	_, err := cache.EmbedBatch(context.Background(), []string{"shea butter"})
	assert.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 0},
		"c": {-1, 0},
		"d": {0, 1},
	}}
	cache := NewCache(provider, newMemStore(), 2)
	ctx := context.Background()

	same, err := cache.Similarity(ctx, "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, same, 0.001)

	opposite, err := cache.Similarity(ctx, "a", "c")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, opposite, 0.001)

	orthogonal, err := cache.Similarity(ctx, "a", "d")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, orthogonal, 0.001)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 0.0001)
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 0}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}
