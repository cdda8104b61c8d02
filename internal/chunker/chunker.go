package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docchat/backend/internal/rag"
)

var (
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	excessBlanks = regexp.MustCompile(`\n{3,}`)
)

// Chunker splits normalized document text into overlapping fixed-size
// character windows. Adjacent chunks share up to Overlap characters so a
// fact straddling a boundary is still retrievable from either side.
type Chunker struct {
	ChunkSize int
	Overlap   int
}

func New(chunkSize, overlap int) (*Chunker, error) {
	if overlap < 0 || chunkSize <= overlap {
		return nil, fmt.Errorf("%w: chunkSize (%d) must be greater than overlap (%d), overlap must be non-negative",
			rag.ErrInvalidConfiguration, chunkSize, overlap)
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}, nil
}

// Split normalizes text and cuts it into chunks for the given document.
// Empty or whitespace-only input yields no chunks and no error.
func (c *Chunker) Split(text, documentID string) []rag.Chunk {
	clean := []rune(Normalize(text))
	if len(clean) == 0 {
		return nil
	}

	step := c.ChunkSize - c.Overlap
	var chunks []rag.Chunk
	idx := 0

	// Windows are measured in runes so a multi-byte character is never
	// split across a chunk boundary.
	for i := 0; i < len(clean); i += step {
		end := i + c.ChunkSize
		if end > len(clean) {
			end = len(clean)
		}
		piece := strings.TrimSpace(string(clean[i:end]))
		if piece != "" {
			chunks = append(chunks, rag.Chunk{
				Text:       piece,
				Index:      idx,
				DocumentID: documentID,
			})
			idx++
		}
	}

	return chunks
}

// Normalize strips carriage returns, collapses trailing whitespace before
// newlines, reduces runs of 3+ newlines to exactly two and trims the ends.
func Normalize(text string) string {
	clean := strings.ReplaceAll(text, "\r", "")
	clean = trailingWS.ReplaceAllString(clean, "\n")
	clean = excessBlanks.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean)
}
