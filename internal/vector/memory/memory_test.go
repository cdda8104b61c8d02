package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/rag"
)

func rec(id string, vec []float32, text string) rag.IndexRecord {
	return rag.IndexRecord{
		ID:     id,
		Vector: vec,
		Metadata: map[string]string{
			rag.MetaText:   text,
			rag.MetaSource: "notes.txt",
		},
	}
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	idx := New()
	ctx := context.Background()

	err := idx.Upsert(ctx, []rag.IndexRecord{
		rec("a::0", []float32{1, 0}, "exact"),
		rec("a::1", []float32{0.7071, 0.7071}, "diagonal"),
		rec("a::2", []float32{0, 1}, "orthogonal"),
	}, "default")
	require.NoError(t, err)

	matches, err := idx.Query(ctx, []float32{1, 0}, 2, "default")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "exact", matches[0].Text)
	assert.Equal(t, "diagonal", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestUpsert_OverwritesByID(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []rag.IndexRecord{rec("a::0", []float32{1, 0}, "old")}, "default"))
	require.NoError(t, idx.Upsert(ctx, []rag.IndexRecord{rec("a::0", []float32{1, 0}, "new")}, "default"))

	assert.Equal(t, 1, idx.Size("default"))

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, "default")
	require.NoError(t, err)
	assert.Equal(t, "new", matches[0].Text)
}

func TestQuery_NamespacesAreIsolated(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []rag.IndexRecord{rec("a::0", []float32{1, 0}, "corpus a")}, "ns-a"))

	matches, err := idx.Query(ctx, []float32{1, 0}, 4, "ns-b")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
