package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/raglabs/docsearch-mcp/internal/chunker"
	"github.com/raglabs/docsearch-mcp/internal/embedcache"
	"github.com/raglabs/docsearch-mcp/internal/embedder"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// Defaults for pipeline tuning knobs
const (
	// DefaultEmbedDelay spaces out provider calls so a local model is
	// not hammered.
	DefaultEmbedDelay = 100 * time.Millisecond

	// DefaultWorkers bounds concurrently processed documents.
	DefaultWorkers = 4
)

// Options tunes a Pipeline.
type Options struct {
	ChunkSize  int
	Overlap    int
	BatchLines int
	EmbedDelay time.Duration
	Workers    int
	Progress   chan<- ProgressEvent
}

// Statistics summarises one ingest job.
type Statistics struct {
	DocumentsProcessed int
	DocumentsFailed    int
	ChunksCreated      int
	ChunksEmbedded     int
	ChunksFailed       int
	Duration           time.Duration
	ErrorMessages      []string
}

// Pipeline turns document files into embedded chunk records.
type Pipeline struct {
	embedder embedder.Embedder
	cache    *embedcache.Store
	splitter *chunker.Splitter
	opts     Options
	logger   *slog.Logger

	// embedSem serializes provider calls across concurrent documents.
	embedSem *semaphore.Weighted
}

// New builds a Pipeline. cache may be nil to skip persistent caching.
func New(emb embedder.Embedder, cache *embedcache.Store, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EmbedDelay <= 0 {
		opts.EmbedDelay = DefaultEmbedDelay
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Pipeline{
		embedder: emb,
		cache:    cache,
		splitter: chunker.NewSplitter(opts.ChunkSize, opts.Overlap),
		opts:     opts,
		logger:   logger,
		embedSem: semaphore.NewWeighted(1),
	}
}

// ProcessDocument streams one source through the chunker and returns the
// document's records with total_chunks set. A splitter safety fault stops
// chunking of the affected buffer but keeps everything produced so far.
func (p *Pipeline) ProcessDocument(ctx context.Context, jobID uuid.UUID, src Source) ([]*types.ChunkRecord, error) {
	st := chunker.NewStreamer(src.ID(), p.splitter, p.logger)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source %s failed: %w", src.ID(), err)
		}

		emit(ctx, p.opts.Progress, ProgressEvent{
			JobID: jobID, Stage: StageExtract,
			Current: batch.Unit, Total: batch.TotalUnits, Label: src.ID(),
		})

		if _, err := st.Write(batch.Text); err != nil {
			// Safety fuse: the rest of this buffer is lost, the
			// document continues with the next batch.
			p.logger.Warn("chunking fault", "document", src.ID(), "error", err)
		}
		emit(ctx, p.opts.Progress, ProgressEvent{
			JobID: jobID, Stage: StageChunk,
			Current: st.Count(), Total: 0, Label: src.ID(),
		})
	}

	if _, err := st.Flush(); err != nil {
		p.logger.Warn("chunking fault on flush", "document", src.ID(), "error", err)
	}
	return st.Finish(), nil
}

// ProcessStructured chunks an in-memory markdown document per section.
func (p *Pipeline) ProcessStructured(document, text string) ([]*types.ChunkRecord, error) {
	ss := chunker.NewSectionSplitter(p.splitter, p.logger)
	records, err := ss.SplitDocument(document, text)
	if err != nil {
		// Partial output is kept; the fault is reported in statistics.
		p.logger.Warn("structured chunking fault", "document", document, "error", err)
	}
	return records, nil
}

// EmbedRecords attaches embeddings to records in place. Failures are
// scoped to the single chunk: the record stays unembedded, a counter is
// bumped, and the loop continues. Only context cancellation aborts.
func (p *Pipeline) EmbedRecords(ctx context.Context, jobID uuid.UUID, records []*types.ChunkRecord) (embedded, failed int, err error) {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return embedded, failed, err
		}

		vec, err := p.embedOne(ctx, rec.Text)
		if err != nil {
			if ctx.Err() != nil {
				return embedded, failed, ctx.Err()
			}
			failed++
			p.logger.Warn("embedding failed, skipping chunk",
				"document", rec.Document, "chunk_id", rec.ChunkID, "error", err)
		} else {
			rec.Embedding = vec
			embedded++
		}

		emit(ctx, p.opts.Progress, ProgressEvent{
			JobID: jobID, Stage: StageEmbed,
			Current: i + 1, Total: len(records), Label: rec.Document,
		})

		if i < len(records)-1 {
			select {
			case <-time.After(p.opts.EmbedDelay):
			case <-ctx.Done():
				return embedded, failed, ctx.Err()
			}
		}
	}
	return embedded, failed, nil
}

// embedOne resolves one text to a vector: persistent cache first, then the
// provider, writing fresh vectors back to the cache.
func (p *Pipeline) embedOne(ctx context.Context, text string) ([]float64, error) {
	hash := embedder.ComputeHash(text)
	if p.cache != nil {
		if entry, err := p.cache.Get(ctx, hash); err == nil {
			return entry.Vector, nil
		} else if !errors.Is(err, embedcache.ErrNotFound) {
			p.logger.Warn("embedding cache read failed", "error", err)
		}
	}

	if err := p.embedSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	vec, err := p.embedder.Embed(ctx, text)
	p.embedSem.Release(1)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		entry := &embedcache.Entry{
			Hash:      hash,
			Provider:  p.embedder.Provider(),
			Model:     p.embedder.Model(),
			Dimension: len(vec),
			Vector:    vec,
		}
		if err := p.cache.Put(ctx, entry); err != nil {
			p.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// Run ingests every file under the given paths concurrently and returns
// all records plus job statistics. A failing document is skipped; the job
// continues with the rest.
func (p *Pipeline) Run(ctx context.Context, paths []string) ([]*types.ChunkRecord, *Statistics, error) {
	jobID := uuid.New()
	start := time.Now()
	stats := &Statistics{}

	var (
		mu  sync.Mutex
		all []*types.ChunkRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, path := range paths {
		g.Go(func() error {
			records, err := p.processFile(gctx, jobID, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				stats.DocumentsFailed++
				stats.ErrorMessages = append(stats.ErrorMessages,
					fmt.Sprintf("%s: %v", path, err))
				p.logger.Error("document skipped", "path", path, "error", err)
				return nil
			}
			stats.DocumentsProcessed++
			stats.ChunksCreated += len(records)
			all = append(all, records...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Embedding runs after chunking so records keep document order and
	// the provider sees one serialized stream.
	embedded, failed, err := p.EmbedRecords(ctx, jobID, all)
	stats.ChunksEmbedded = embedded
	stats.ChunksFailed = failed
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("ingest finished",
		"job_id", jobID,
		"documents", stats.DocumentsProcessed,
		"failed_documents", stats.DocumentsFailed,
		"chunks", stats.ChunksCreated,
		"embedded", stats.ChunksEmbedded,
		"failed_chunks", stats.ChunksFailed,
		"duration", stats.Duration)
	return all, stats, nil
}

// processFile routes one file through the matching chunking strategy.
func (p *Pipeline) processFile(ctx context.Context, jobID uuid.UUID, path string) ([]*types.ChunkRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if structuredExts[ext] {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return p.ProcessStructured(filepath.Base(path), string(data))
	}

	src, err := NewFileSource(path, p.opts.BatchLines, p.logger)
	if err != nil {
		return nil, err
	}
	return p.ProcessDocument(ctx, jobID, src)
}
