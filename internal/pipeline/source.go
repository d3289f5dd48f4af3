package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Batch is one unit of text yielded by a Source. Unit and TotalUnits are
// monotonically non-decreasing and feed progress reporting only.
type Batch struct {
	Text       string
	Unit       int
	TotalUnits int
}

// Source yields the text of one document in batches. Next returns io.EOF
// when the document is exhausted.
type Source interface {
	// ID identifies the document within the index.
	ID() string

	// Next yields the next batch or io.EOF.
	Next(ctx context.Context) (Batch, error)
}

// DefaultBatchLines is how many lines a FileSource yields per batch.
const DefaultBatchLines = 200

// FileSource reads a plain-text file in line batches.
type FileSource struct {
	id         string
	path       string
	batchLines int
	logger     *slog.Logger

	file    *os.File
	scanner *bufio.Scanner
	unit    int
	total   int
}

// NewFileSource opens path for batched reading. The document id is the
// file's base name.
func NewFileSource(path string, batchLines int, logger *slog.Logger) (*FileSource, error) {
	if batchLines <= 0 {
		batchLines = DefaultBatchLines
	}
	if logger == nil {
		logger = slog.Default()
	}

	total, err := countLines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &FileSource{
		id:         filepath.Base(path),
		path:       path,
		batchLines: batchLines,
		logger:     logger,
		file:       f,
		scanner:    scanner,
		total:      total,
	}, nil
}

// ID implements Source.
func (fs *FileSource) ID() string { return fs.id }

// Next implements Source.
func (fs *FileSource) Next(ctx context.Context) (Batch, error) {
	select {
	case <-ctx.Done():
		return Batch{}, io.EOF
	default:
	}

	var b strings.Builder
	lines := 0
	for lines < fs.batchLines && fs.scanner.Scan() {
		b.WriteString(fs.scanner.Text())
		b.WriteByte('\n')
		lines++
	}
	if lines == 0 {
		_ = fs.file.Close()
		if err := fs.scanner.Err(); err != nil {
			// A torn tail loses only the remainder of this file.
			fs.logger.Warn("file read aborted", "path", fs.path, "error", err)
		}
		return Batch{}, io.EOF
	}

	fs.unit += lines
	return Batch{Text: b.String(), Unit: fs.unit, TotalUnits: fs.total}, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// StaticSource yields pre-built batches; used by tests and for text that
// is already in memory.
type StaticSource struct {
	id      string
	batches []string
	next    int
}

// NewStaticSource builds a Source over in-memory batches.
func NewStaticSource(id string, batches ...string) *StaticSource {
	return &StaticSource{id: id, batches: batches}
}

// ID implements Source.
func (s *StaticSource) ID() string { return s.id }

// Next implements Source.
func (s *StaticSource) Next(context.Context) (Batch, error) {
	if s.next >= len(s.batches) {
		return Batch{}, io.EOF
	}
	b := Batch{Text: s.batches[s.next], Unit: s.next + 1, TotalUnits: len(s.batches)}
	s.next++
	return b, nil
}

// structuredExts are file extensions routed through the section splitter.
var structuredExts = map[string]bool{".md": true, ".markdown": true}

// textExts are file extensions ingested as plain text.
var textExts = map[string]bool{".txt": true, ".text": true, ".log": true}

// ListDocuments walks root and returns the ingestable files, sorted.
func ListDocuments(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if structuredExts[ext] || textExts[ext] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}
