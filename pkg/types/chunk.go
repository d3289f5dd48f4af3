package types

import (
	"fmt"
	"strings"
)

// ChunkRecord is one chunk of a source document together with its position
// in the document and, once computed, its embedding vector.
//
// ChunkID is assigned sequentially from 0 within a document. TotalChunks is
// zero while the document is still being streamed and is backfilled on every
// record when the document finishes, so a record with TotalChunks == 0 came
// from an unfinished stream.
type ChunkRecord struct {
	Document      string    `json:"document"`
	ChunkID       int       `json:"chunk_id"`
	Text          string    `json:"text"`
	HeaderContext string    `json:"header_context,omitempty"`
	TotalChunks   int       `json:"total_chunks"`
	Embedding     []float64 `json:"embedding,omitempty"`
}

// NormalizedText returns the whitespace-trimmed chunk text. Duplicate
// detection within a document compares normalized text.
func (c *ChunkRecord) NormalizedText() string {
	return strings.TrimSpace(c.Text)
}

// HasEmbedding reports whether an embedding has been attached to the chunk.
func (c *ChunkRecord) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Validate checks the structural invariants of a record.
func (c *ChunkRecord) Validate() error {
	if c.Document == "" {
		return fmt.Errorf("%w: document is empty", ErrInvalidChunk)
	}
	if c.ChunkID < 0 {
		return fmt.Errorf("%w: negative chunk_id %d", ErrInvalidChunk, c.ChunkID)
	}
	if c.NormalizedText() == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidChunk)
	}
	return nil
}
