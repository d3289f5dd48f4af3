package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// ErrNotFound is returned by Load when no index file exists at the path.
var ErrNotFound = errors.New("index: not found")

// Index is the in-memory chunk corpus. It is not safe for concurrent
// mutation; the pipeline fills it from a single goroutine and search reads
// a loaded snapshot.
type Index struct {
	records []*types.ChunkRecord
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Append adds records to the corpus.
func (ix *Index) Append(records ...*types.ChunkRecord) {
	ix.records = append(ix.records, records...)
}

// Records returns the backing record slice in append order.
func (ix *Index) Records() []*types.ChunkRecord {
	return ix.records
}

// Len returns the number of records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Stats summarises the corpus for status reporting.
type Stats struct {
	TotalChunks     int      `json:"total_chunks"`
	UniqueDocuments int      `json:"unique_documents"`
	EmbeddedChunks  int      `json:"embedded_chunks"`
	Documents       []string `json:"documents"`
}

// Stats computes corpus statistics. Document names are listed in first
// appearance order.
func (ix *Index) Stats() Stats {
	stats := Stats{TotalChunks: len(ix.records)}
	seen := make(map[string]struct{})
	for _, r := range ix.records {
		if r.HasEmbedding() {
			stats.EmbeddedChunks++
		}
		if _, ok := seen[r.Document]; !ok {
			seen[r.Document] = struct{}{}
			stats.Documents = append(stats.Documents, r.Document)
		}
	}
	stats.UniqueDocuments = len(stats.Documents)
	return stats
}

// Save writes the full corpus to path atomically. A reader never observes
// a partially written file: the JSON is written to a temp file in the same
// directory and renamed over the target.
func (ix *Index) Save(path string) error {
	data, err := json.MarshalIndent(ix.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set index permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

// Load reads the corpus from path. It returns ErrNotFound when the file
// does not exist, which is distinct from an existing empty index. The file
// is human-editable JSON, so every record is validated before it is served.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var records []*types.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("index record %d: %w: null record", i, types.ErrInvalidChunk)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("index record %d: %w", i, err)
		}
	}
	return &Index{records: records}, nil
}
