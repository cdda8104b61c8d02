package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/docchat/backend/internal/rag"
)

// Index is an in-process vector index using brute-force cosine similarity,
// for tests and local development without a Milvus deployment. Vectors are
// assumed unit-normalized, so dot product equals cosine similarity.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]record
}

type record struct {
	vector   []float32
	metadata map[string]string
}

var _ rag.VectorIndex = (*Index)(nil)

func New() *Index {
	return &Index{namespaces: make(map[string]map[string]record)}
}

func (idx *Index) Upsert(_ context.Context, records []rag.IndexRecord, namespace string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ns, ok := idx.namespaces[namespace]
	if !ok {
		ns = make(map[string]record)
		idx.namespaces[namespace] = ns
	}

	for _, rec := range records {
		meta := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		ns[rec.ID] = record{vector: vec, metadata: meta}
	}

	return nil
}

func (idx *Index) Query(_ context.Context, vector []float32, topK int, namespace string) ([]rag.Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ns := idx.namespaces[namespace]
	matches := make([]rag.Match, 0, len(ns))

	for _, rec := range ns {
		matches = append(matches, rag.Match{
			Text:     rec.metadata[rag.MetaText],
			Metadata: rec.metadata,
			Score:    dot(rec.vector, vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}

	return matches, nil
}

// Size reports how many records a namespace holds.
func (idx *Index) Size(namespace string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.namespaces[namespace])
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
