package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration covers bad chunking parameters and embedding
	// dimension mismatches. Fatal at setup, never recoverable per-request.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedContent is returned when no extractor handles a
	// document's mime type. Only that document's ingestion aborts.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// EmbeddingError wraps a failure from the embedding provider.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexWriteError reports a failed upsert. Written counts the records of
// preceding batches that were already durably written before the failure;
// partial success is communicated, not hidden.
type IndexWriteError struct {
	Written int
	Err     error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write failed after %d records written: %v", e.Written, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// IndexQueryError wraps a failed similarity query.
type IndexQueryError struct {
	Err error
}

func (e *IndexQueryError) Error() string {
	return fmt.Sprintf("index query: %v", e.Err)
}

func (e *IndexQueryError) Unwrap() error { return e.Err }

// GenerationError wraps a failure from the answer-generation provider.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation provider: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
