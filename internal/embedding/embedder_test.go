package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/rag"
)

type fakeProvider struct {
	vectors [][]float32
	err     error
	calls   int
	inputs  [][]string
}

func (f *fakeProvider) Embeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.inputs = append(f.inputs, texts)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

type fakeCache struct {
	store map[string][]float32
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]float32{}} }

func (f *fakeCache) GetEmbedding(_ context.Context, text string) ([]float32, bool, error) {
	vec, ok := f.store[text]
	return vec, ok, nil
}

func (f *fakeCache) SetEmbedding(_ context.Context, text string, vector []float32) error {
	f.store[text] = vector
	return nil
}

func euclideanNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize_UnitNorm(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)

	assert.InDelta(t, 1.0, euclideanNorm(n), 1e-6)
	assert.InDelta(t, 0.6, float64(n[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(n[1]), 1e-6)
	// Input untouched.
	assert.Equal(t, []float32{3, 4}, v)
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.Equal(t, []float32{0, 0, 0}, Normalize(v))
}

func TestEmbedMany_NormalizesEveryVector(t *testing.T) {
	provider := &fakeProvider{vectors: [][]float32{{1, 2, 2}, {0, 5, 0}}}
	e, err := New(provider, 3, nil)
	require.NoError(t, err)

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	for _, v := range vectors {
		assert.InDelta(t, 1.0, euclideanNorm(v), 1e-6)
	}
}

func TestEmbedMany_EmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	e, err := New(provider, 3, nil)
	require.NoError(t, err)

	vectors, err := e.EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, provider.calls)
}

func TestEmbedMany_ProviderErrorWrapped(t *testing.T) {
	provider := &fakeProvider{err: errors.New("timeout")}
	e, err := New(provider, 3, nil)
	require.NoError(t, err)

	_, err = e.EmbedMany(context.Background(), []string{"a"})
	require.Error(t, err)

	var embErr *rag.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestEmbedMany_DimensionMismatch(t *testing.T) {
	provider := &fakeProvider{vectors: [][]float32{{1, 2}}}
	e, err := New(provider, 3, nil)
	require.NoError(t, err)

	_, err = e.EmbedMany(context.Background(), []string{"a"})
	var embErr *rag.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestEmbedMany_CacheHitsSkipProvider(t *testing.T) {
	cache := newFakeCache()
	provider := &fakeProvider{vectors: [][]float32{{0, 1, 0}}}
	e, err := New(provider, 3, cache)
	require.NoError(t, err)

	_, err = e.EmbedMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	// Second call served from cache.
	vectors, err := e.EmbedMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.InDelta(t, 1.0, euclideanNorm(vectors[0]), 1e-6)
}

func TestEmbedOne_MatchesBatchPath(t *testing.T) {
	provider := &fakeProvider{vectors: [][]float32{{2, 0, 0}}}
	e, err := New(provider, 3, nil)
	require.NoError(t, err)

	vec, err := e.EmbedOne(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestNew_RejectsNonPositiveDimension(t *testing.T) {
	_, err := New(&fakeProvider{}, 0, nil)
	assert.ErrorIs(t, err, rag.ErrInvalidConfiguration)
}
