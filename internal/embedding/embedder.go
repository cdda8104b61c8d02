package embedding

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/pkg/logger"
)

// Provider is the raw embedding backend, typically the LLM client.
type Provider interface {
	Embeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache stores normalized vectors keyed by text hash. Optional.
type Cache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, text string, vector []float32) error
}

// Embedder turns text into unit-normalized vectors of a fixed dimension.
// The index is written with normalized vectors and queried with normalized
// vectors, so the provider's dot-product scores equal cosine similarity.
// Both paths go through this type to keep that symmetric.
type Embedder struct {
	provider Provider
	cache    Cache
	dim      int
}

var _ rag.Embedder = (*Embedder)(nil)

func New(provider Provider, dim int, cache Cache) (*Embedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", rag.ErrInvalidConfiguration, dim)
	}
	return &Embedder{provider: provider, cache: cache, dim: dim}, nil
}

func (e *Embedder) Dimension() int { return e.dim }

// EmbedMany embeds a batch of texts in input order. Texts already in the
// cache skip the provider; the rest go out as one provider call.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if cached, ok := e.cacheGet(ctx, text); ok {
			vectors[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fresh, err := e.provider.Embeddings(ctx, missing)
		if err != nil {
			return nil, &rag.EmbeddingError{Err: err}
		}
		if len(fresh) != len(missing) {
			return nil, &rag.EmbeddingError{
				Err: fmt.Errorf("provider returned %d vectors for %d texts", len(fresh), len(missing)),
			}
		}

		for j, vec := range fresh {
			if len(vec) != e.dim {
				return nil, &rag.EmbeddingError{
					Err: fmt.Errorf("provider returned dimension %d, configured %d", len(vec), e.dim),
				}
			}
			normalized := Normalize(vec)
			vectors[missingIdx[j]] = normalized
			e.cacheSet(ctx, missing[j], normalized)
		}
	}

	logger.Debug("Texts embedded",
		zap.Int("total", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missing)),
	)

	return vectors, nil
}

// EmbedOne embeds a single text, the query path.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) cacheGet(ctx context.Context, text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	vec, ok, err := e.cache.GetEmbedding(ctx, text)
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
		return nil, false
	}
	return vec, ok && len(vec) == e.dim
}

func (e *Embedder) cacheSet(ctx context.Context, text string, vector []float32) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetEmbedding(ctx, text, vector); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}

// Normalize scales v to unit Euclidean norm. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
