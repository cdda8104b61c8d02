package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/pkg/logger"
)

const (
	fieldChunkID    = "chunk_id"
	fieldEmbedding  = "embedding"
	fieldText       = "text"
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"
	fieldSource     = "source"
	fieldMimeType   = "mime_type"
)

var outputFields = []string{fieldChunkID, fieldText, fieldDocumentID, fieldChunkIndex, fieldSource, fieldMimeType}

// Client adapts a Milvus/Zilliz collection to the rag.VectorIndex contract.
// Namespaces map to Milvus partitions; records in different partitions
// never cross-match.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
	upsertBatch    int
}

var _ rag.VectorIndex = (*Client)(nil)

func NewClient(ctx context.Context, endpoint, apiKey, collectionName string, vectorDim, upsertBatch int) (*Client, error) {
	cfg := client.Config{Address: endpoint, APIKey: apiKey}

	c, err := client.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	if upsertBatch <= 0 {
		upsertBatch = 80
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
		zap.Int("dim", vectorDim),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		upsertBatch:    upsertBatch,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

// EnsureCollection creates the collection with a cosine-metric index if it
// does not exist, and otherwise verifies the stored vector dimension
// matches the configured one. A mismatch is fatal at startup, not at query
// time.
func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		return m.verifyDimension(ctx)
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Document chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       fieldChunkID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:     fieldEmbedding,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(m.vectorDim),
				},
			},
			{
				Name:       fieldText,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       fieldDocumentID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     fieldChunkIndex,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       fieldSource,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       fieldMimeType,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collectionName, fieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

// EnsureNamespace creates the backing partition for a namespace if needed.
func (m *Client) EnsureNamespace(ctx context.Context, namespace string) error {
	has, err := m.client.HasPartition(ctx, m.collectionName, namespace)
	if err != nil {
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if has {
		return nil
	}

	if err := m.client.CreatePartition(ctx, m.collectionName, namespace); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}

	logger.Info("Namespace partition created", zap.String("namespace", namespace))
	return nil
}

func (m *Client) verifyDimension(ctx context.Context) error {
	coll, err := m.client.DescribeCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to describe collection: %w", err)
	}

	for _, field := range coll.Schema.Fields {
		if field.Name != fieldEmbedding {
			continue
		}
		dim, err := strconv.Atoi(field.TypeParams["dim"])
		if err != nil {
			return fmt.Errorf("failed to parse collection dimension: %w", err)
		}
		if dim != m.vectorDim {
			return fmt.Errorf("%w: collection dimension %d does not match configured %d",
				rag.ErrInvalidConfiguration, dim, m.vectorDim)
		}
		return nil
	}

	return fmt.Errorf("%w: collection %s has no %s field",
		rag.ErrInvalidConfiguration, m.collectionName, fieldEmbedding)
}

// Upsert writes records in sequential batches. A record whose ID already
// exists is overwritten wholesale. On a failed batch the error reports how
// many records of preceding batches were already durably written.
func (m *Client) Upsert(ctx context.Context, records []rag.IndexRecord, namespace string) error {
	written := 0

	for start := 0; start < len(records); start += m.upsertBatch {
		end := start + m.upsertBatch
		if end > len(records) {
			end = len(records)
		}

		if err := m.upsertBatchRecords(ctx, records[start:end], namespace); err != nil {
			return &rag.IndexWriteError{Written: written, Err: err}
		}
		written = end
	}

	logger.Info("Records upserted",
		zap.Int("count", written),
		zap.String("namespace", namespace),
	)

	return nil
}

func (m *Client) upsertBatchRecords(ctx context.Context, records []rag.IndexRecord, namespace string) error {
	chunkIDs := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	texts := make([]string, len(records))
	docIDs := make([]string, len(records))
	chunkIdxs := make([]int64, len(records))
	sources := make([]string, len(records))
	mimeTypes := make([]string, len(records))

	for i, rec := range records {
		chunkIDs[i] = rec.ID
		embeddings[i] = rec.Vector
		texts[i] = rec.Metadata[rag.MetaText]
		docIDs[i] = rec.Metadata[rag.MetaDocumentID]
		sources[i] = rec.Metadata[rag.MetaSource]
		mimeTypes[i] = rec.Metadata[rag.MetaType]
		if idx, err := strconv.ParseInt(rec.Metadata[rag.MetaChunkIndex], 10, 64); err == nil {
			chunkIdxs[i] = idx
		}
	}

	_, err := m.client.Upsert(
		ctx,
		m.collectionName,
		namespace,
		entity.NewColumnVarChar(fieldChunkID, chunkIDs),
		entity.NewColumnFloatVector(fieldEmbedding, m.vectorDim, embeddings),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldDocumentID, docIDs),
		entity.NewColumnInt64(fieldChunkIndex, chunkIdxs),
		entity.NewColumnVarChar(fieldSource, sources),
		entity.NewColumnVarChar(fieldMimeType, mimeTypes),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}

	return nil
}

// Query returns the topK nearest neighbors in the namespace, descending by
// cosine similarity. Matches with missing metadata keep an empty text field
// rather than being dropped.
func (m *Client) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]rag.Match, error) {
	if topK <= 0 {
		return nil, &rag.IndexQueryError{Err: fmt.Errorf("topK must be positive, got %d", topK)}
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{namespace},
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, &rag.IndexQueryError{Err: err}
	}

	matches := make([]rag.Match, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			metadata := map[string]string{
				rag.MetaDocumentID: columnString(sr.Fields.GetColumn(fieldDocumentID), i),
				rag.MetaChunkIndex: columnString(sr.Fields.GetColumn(fieldChunkIndex), i),
				rag.MetaSource:     columnString(sr.Fields.GetColumn(fieldSource), i),
				rag.MetaType:       columnString(sr.Fields.GetColumn(fieldMimeType), i),
			}
			text := columnString(sr.Fields.GetColumn(fieldText), i)
			metadata[rag.MetaText] = text

			matches = append(matches, rag.Match{
				Text:     text,
				Metadata: metadata,
				Score:    sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(matches)),
		zap.String("namespace", namespace),
	)

	return matches, nil
}

func columnString(col entity.Column, i int) string {
	if col == nil {
		return ""
	}
	val, err := col.Get(i)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
