package rag

import "context"

// Metadata keys stored alongside every vector so retrieval can rebuild
// the chunk text and cite its origin without a second lookup.
const (
	MetaDocumentID = "documentId"
	MetaChunkIndex = "chunkIndex"
	MetaSource     = "source"
	MetaType       = "type"
	MetaText       = "text"
)

// Document is a logical unit submitted for ingestion. It is never mutated
// after creation; re-ingesting the same content yields a new DocumentID.
type Document struct {
	ID         string
	SourceName string
	MimeType   string
	Text       string
}

// Chunk is a contiguous slice of a document's normalized text.
type Chunk struct {
	Text       string
	Index      int
	DocumentID string
}

// IndexRecord is the persisted unit in the vector index. ID is deterministic
// (documentId::chunkIndex) so re-ingesting the same position overwrites.
type IndexRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one retrieved chunk with its cosine similarity score.
type Match struct {
	Text     string
	Metadata map[string]string
	Score    float32
}

// IngestResult reports what a single document ingestion produced.
type IngestResult struct {
	DocumentID      string `json:"document_id"`
	ChunksProcessed int    `json:"chunks_processed"`
}

// Answer is the per-question result. Degraded marks the fallback produced
// when any retrieval-path error was swallowed at the boundary.
type Answer struct {
	Text     string    `json:"answer"`
	Sources  []string  `json:"sources"`
	Scores   []float32 `json:"scores,omitempty"`
	Degraded bool      `json:"-"`
}

// Embedder converts text into unit-normalized fixed-dimension vectors.
// Normalization is applied identically on the ingestion and query paths.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorIndex persists embedding vectors and serves top-k similarity queries
// within a namespace.
type VectorIndex interface {
	Upsert(ctx context.Context, records []IndexRecord, namespace string) error
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error)
}

// Generator produces a single-turn completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
