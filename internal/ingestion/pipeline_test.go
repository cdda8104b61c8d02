package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/chunker"
	"github.com/docchat/backend/internal/extract"
	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/internal/storage/models"
	"github.com/docchat/backend/internal/vector/memory"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type failingIndex struct {
	calls int
}

func (f *failingIndex) Upsert(context.Context, []rag.IndexRecord, string) error {
	f.calls++
	return &rag.IndexWriteError{Written: 0, Err: errors.New("connection reset")}
}

func (f *failingIndex) Query(context.Context, []float32, int, string) ([]rag.Match, error) {
	return nil, nil
}

type fakeRegistry struct {
	records []*models.DocumentRecord
}

func (f *fakeRegistry) InsertDocument(doc *models.DocumentRecord) error {
	f.records = append(f.records, doc)
	return nil
}

func newTestPipeline(t *testing.T, embedder rag.Embedder, index rag.VectorIndex, registry DocumentRegistry) *Pipeline {
	t.Helper()
	ch, err := chunker.New(100, 20)
	require.NoError(t, err)
	return NewPipeline(extract.NewRegistry(nil), ch, embedder, index, registry, "default")
}

func TestIngestRawText_EndToEnd(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := memory.New()
	registry := &fakeRegistry{}
	p := newTestPipeline(t, embedder, index, registry)

	text := strings.Repeat("facts about the corpus. ", 20)
	result, err := p.IngestRawText(context.Background(), text, "notes.txt")
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocumentID)
	assert.Greater(t, result.ChunksProcessed, 1)
	assert.Equal(t, 1, embedder.calls, "all chunks embedded in one batch call")
	assert.Equal(t, result.ChunksProcessed, index.Size("default"))

	require.Len(t, registry.records, 1)
	assert.Equal(t, "notes.txt", registry.records[0].SourceName)
	assert.Equal(t, result.ChunksProcessed, registry.records[0].ChunkCount)
}

func TestIngestRawText_EmptyDocumentIsNoOp(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := memory.New()
	p := newTestPipeline(t, embedder, index, nil)

	result, err := p.IngestRawText(context.Background(), "   \n  ", "empty.txt")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ChunksProcessed)
	assert.NotEmpty(t, result.DocumentID)
	assert.Zero(t, embedder.calls, "embedder must not be contacted")
	assert.Zero(t, index.Size("default"), "index must not be contacted")
}

func TestIngest_UnsupportedMimeType(t *testing.T) {
	p := newTestPipeline(t, &fakeEmbedder{}, memory.New(), nil)

	_, err := p.Ingest(context.Background(), []byte{0xff}, "blob.bin", "application/octet-stream")
	assert.ErrorIs(t, err, rag.ErrUnsupportedContent)
}

func TestIngest_EmbeddingFailureAborts(t *testing.T) {
	embedder := &fakeEmbedder{err: &rag.EmbeddingError{Err: errors.New("timeout")}}
	index := memory.New()
	p := newTestPipeline(t, embedder, index, nil)

	_, err := p.IngestRawText(context.Background(), "some document text", "notes.txt")
	require.Error(t, err)

	var embErr *rag.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
	assert.Zero(t, index.Size("default"), "nothing reaches the index on embed failure")
}

func TestIngest_IndexFailurePropagates(t *testing.T) {
	index := &failingIndex{}
	p := newTestPipeline(t, &fakeEmbedder{}, index, nil)

	_, err := p.IngestRawText(context.Background(), "some document text", "notes.txt")
	require.Error(t, err)

	var writeErr *rag.IndexWriteError
	assert.ErrorAs(t, err, &writeErr)
}

func TestIngest_ReingestOverwrites(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := memory.New()
	p := newTestPipeline(t, embedder, index, nil)

	doc := rag.Document{
		ID:         "fixed-doc-id",
		SourceName: "notes.txt",
		MimeType:   "text/plain",
		Text:       strings.Repeat("stable content. ", 30),
	}

	first, err := p.ingestText(context.Background(), doc)
	require.NoError(t, err)
	sizeAfterFirst := index.Size("default")

	second, err := p.ingestText(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksProcessed, second.ChunksProcessed)
	assert.Equal(t, sizeAfterFirst, index.Size("default"), "identical re-ingest must not grow the index")
}

func TestIngest_RecordMetadata(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := memory.New()
	p := newTestPipeline(t, embedder, index, nil)

	doc := rag.Document{
		ID:         "doc-7",
		SourceName: "report.txt",
		MimeType:   "text/plain",
		Text:       "short report body",
	}

	_, err := p.ingestText(context.Background(), doc)
	require.NoError(t, err)

	matches, err := index.Query(context.Background(), []float32{1, 0, 0}, 1, "default")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	meta := matches[0].Metadata
	assert.Equal(t, "doc-7", meta[rag.MetaDocumentID])
	assert.Equal(t, "0", meta[rag.MetaChunkIndex])
	assert.Equal(t, "report.txt", meta[rag.MetaSource])
	assert.Equal(t, "text/plain", meta[rag.MetaType])
	assert.Equal(t, "short report body", meta[rag.MetaText])
	assert.Equal(t, "short report body", matches[0].Text)
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "doc-1::0", RecordID("doc-1", 0))
	assert.Equal(t, "doc-1::12", RecordID("doc-1", 12))
}
