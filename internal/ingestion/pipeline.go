package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/chunker"
	"github.com/docchat/backend/internal/extract"
	"github.com/docchat/backend/internal/metrics"
	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/internal/storage/models"
	"github.com/docchat/backend/pkg/logger"
)

// DocumentRegistry records successfully ingested documents. Optional.
type DocumentRegistry interface {
	InsertDocument(doc *models.DocumentRecord) error
}

// Pipeline orchestrates extract -> chunk -> embed -> upsert for a single
// document. A failed ingest leaves nothing logically visible as ingested;
// the caller retries the whole document.
type Pipeline struct {
	extractor *extract.Registry
	chunker   *chunker.Chunker
	embedder  rag.Embedder
	index     rag.VectorIndex
	registry  DocumentRegistry
	namespace string
}

func NewPipeline(
	extractor *extract.Registry,
	ch *chunker.Chunker,
	embedder rag.Embedder,
	index rag.VectorIndex,
	registry DocumentRegistry,
	namespace string,
) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		index:     index,
		registry:  registry,
		namespace: namespace,
	}
}

// Ingest extracts text from an uploaded document and indexes it. Each call
// mints a fresh document ID; re-uploading the same file creates a new
// logical document.
func (p *Pipeline) Ingest(ctx context.Context, content []byte, sourceName, mimeType string) (*rag.IngestResult, error) {
	text, err := p.extractor.Extract(ctx, content, mimeType)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	return p.ingestText(ctx, rag.Document{
		ID:         uuid.New().String(),
		SourceName: sourceName,
		MimeType:   mimeType,
		Text:       text,
	})
}

// IngestRawText indexes already-extracted plain text under a source label.
func (p *Pipeline) IngestRawText(ctx context.Context, text, sourceLabel string) (*rag.IngestResult, error) {
	if sourceLabel == "" {
		sourceLabel = "text"
	}

	return p.ingestText(ctx, rag.Document{
		ID:         uuid.New().String(),
		SourceName: sourceLabel,
		MimeType:   "text/plain",
		Text:       text,
	})
}

func (p *Pipeline) ingestText(ctx context.Context, doc rag.Document) (*rag.IngestResult, error) {
	start := time.Now()

	chunks := p.chunker.Split(doc.Text, doc.ID)
	if len(chunks) == 0 {
		// Empty documents are a no-op, not an error. Neither the
		// embedder nor the index is contacted.
		logger.Info("Document produced no chunks",
			zap.String("doc_id", doc.ID),
			zap.String("source", doc.SourceName),
		)
		metrics.IngestTotal.WithLabelValues("empty").Inc()
		return &rag.IngestResult{DocumentID: doc.ID, ChunksProcessed: 0}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}

	records := make([]rag.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = rag.IndexRecord{
			ID:     RecordID(doc.ID, chunk.Index),
			Vector: vectors[i],
			Metadata: map[string]string{
				rag.MetaDocumentID: doc.ID,
				rag.MetaChunkIndex: strconv.Itoa(chunk.Index),
				rag.MetaSource:     doc.SourceName,
				rag.MetaType:       doc.MimeType,
				rag.MetaText:       chunk.Text,
			},
		}
	}

	if err := p.index.Upsert(ctx, records, p.namespace); err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	if p.registry != nil {
		record := &models.DocumentRecord{
			ID:         doc.ID,
			SourceName: doc.SourceName,
			MimeType:   doc.MimeType,
			ChunkCount: len(chunks),
			CreatedAt:  time.Now(),
		}
		if err := p.registry.InsertDocument(record); err != nil {
			// Registry is bookkeeping; the corpus itself is already
			// durable in the index.
			logger.Warn("Failed to record ingested document", zap.Error(err))
		}
	}

	metrics.IngestTotal.WithLabelValues("ok").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	metrics.ChunksPerDocument.Observe(float64(len(chunks)))

	logger.Info("Document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("source", doc.SourceName),
		zap.Int("chunks", len(chunks)),
	)

	return &rag.IngestResult{DocumentID: doc.ID, ChunksProcessed: len(chunks)}, nil
}

// RecordID builds the deterministic index record ID for a chunk, so
// re-ingesting the same document position overwrites instead of
// duplicating.
func RecordID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s::%d", documentID, chunkIndex)
}
