package milvus

import (
	"context"
	"errors"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/rag"
)

// fakeMilvus stubs the SDK client; only the methods under test are
// implemented, the embedded interface panics on anything else.
type fakeMilvus struct {
	client.Client

	upsertCalls  []int
	failOnCall   int
	upsertErr    error
	partitionArg string
}

func (f *fakeMilvus) Upsert(_ context.Context, _ string, partitionName string, columns ...entity.Column) (entity.Column, error) {
	f.partitionArg = partitionName
	call := len(f.upsertCalls) + 1
	if f.upsertErr != nil && call == f.failOnCall {
		f.upsertCalls = append(f.upsertCalls, -1)
		return nil, f.upsertErr
	}
	f.upsertCalls = append(f.upsertCalls, columns[0].Len())
	return nil, nil
}

func newTestClient(fake *fakeMilvus, batch int) *Client {
	return &Client{
		client:         fake,
		collectionName: "chunks",
		vectorDim:      3,
		upsertBatch:    batch,
	}
}

func makeRecords(n int) []rag.IndexRecord {
	records := make([]rag.IndexRecord, n)
	for i := range records {
		records[i] = rag.IndexRecord{
			ID:     "doc::" + string(rune('a'+i)),
			Vector: []float32{1, 0, 0},
			Metadata: map[string]string{
				rag.MetaDocumentID: "doc",
				rag.MetaChunkIndex: "0",
				rag.MetaSource:     "notes.txt",
				rag.MetaType:       "text/plain",
				rag.MetaText:       "chunk text",
			},
		}
	}
	return records
}

func TestUpsert_SplitsIntoSequentialBatches(t *testing.T) {
	fake := &fakeMilvus{}
	c := newTestClient(fake, 2)

	err := c.Upsert(context.Background(), makeRecords(5), "default")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, fake.upsertCalls)
	assert.Equal(t, "default", fake.partitionArg)
}

func TestUpsert_ReportsPartialSuccess(t *testing.T) {
	fake := &fakeMilvus{upsertErr: errors.New("quota exceeded"), failOnCall: 3}
	c := newTestClient(fake, 2)

	err := c.Upsert(context.Background(), makeRecords(6), "default")
	require.Error(t, err)

	var writeErr *rag.IndexWriteError
	require.ErrorAs(t, err, &writeErr)
	// Two full batches landed before the third failed.
	assert.Equal(t, 4, writeErr.Written)
}

func TestUpsert_EmptyRecords(t *testing.T) {
	fake := &fakeMilvus{}
	c := newTestClient(fake, 2)

	err := c.Upsert(context.Background(), nil, "default")
	require.NoError(t, err)
	assert.Empty(t, fake.upsertCalls)
}

func TestQuery_RejectsNonPositiveTopK(t *testing.T) {
	c := newTestClient(&fakeMilvus{}, 2)

	_, err := c.Query(context.Background(), []float32{1, 0, 0}, 0, "default")
	require.Error(t, err)

	var queryErr *rag.IndexQueryError
	assert.ErrorAs(t, err, &queryErr)
}

func TestColumnString(t *testing.T) {
	strCol := entity.NewColumnVarChar("source", []string{"notes.txt"})
	assert.Equal(t, "notes.txt", columnString(strCol, 0))

	intCol := entity.NewColumnInt64("chunk_index", []int64{7})
	assert.Equal(t, "7", columnString(intCol, 0))

	assert.Equal(t, "", columnString(nil, 0))
	assert.Equal(t, "", columnString(strCol, 5))
}
