package models

import "time"

// DocumentRecord is the registry row written after a successful ingest.
// The vector index holds the chunks; this table exists so operators can
// list what the corpus contains and when it was ingested.
type DocumentRecord struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	MimeType   string    `json:"mime_type"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
