package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/docsearch-mcp/internal/embedcache"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// fakeEmbedder returns deterministic vectors and can be told to fail for
// specific texts.
type fakeEmbedder struct {
	calls    atomic.Int32
	failText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	if f.failText != "" && text == f.failText {
		return nil, errors.New("provider unavailable")
	}
	return []float64{float64(len(text)), 1}, nil
}

func (f *fakeEmbedder) Dimension() int   { return 2 }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Model() string    { return "fake-model" }
func (f *fakeEmbedder) Close() error     { return nil }

func testOptions() Options {
	return Options{ChunkSize: 50, Overlap: 10, EmbedDelay: time.Millisecond, Workers: 2}
}

func TestPipeline_ProcessDocument(t *testing.T) {
	p := New(&fakeEmbedder{}, nil, testOptions(), nil)

	src := NewStaticSource("doc.txt",
		"First sentence of the document. Second one here. ",
		"Third sentence arrives later. Fourth closes it. ",
	)
	records, err := p.ProcessDocument(context.Background(), uuid.New(), src)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	for i, r := range records {
		assert.Equal(t, "doc.txt", r.Document)
		assert.Equal(t, i, r.ChunkID)
		assert.Equal(t, len(records), r.TotalChunks)
		assert.NotEmpty(t, r.NormalizedText())
	}
}

func TestPipeline_EmbedRecords(t *testing.T) {
	t.Run("attaches vectors", func(t *testing.T) {
		emb := &fakeEmbedder{}
		p := New(emb, nil, testOptions(), nil)

		records := []*types.ChunkRecord{
			{Document: "d", ChunkID: 0, Text: "one", TotalChunks: 2},
			{Document: "d", ChunkID: 1, Text: "two", TotalChunks: 2},
		}
		embedded, failed, err := p.EmbedRecords(context.Background(), uuid.New(), records)
		require.NoError(t, err)
		assert.Equal(t, 2, embedded)
		assert.Equal(t, 0, failed)
		for _, r := range records {
			assert.True(t, r.HasEmbedding())
		}
	})

	t.Run("single failure does not abort the batch", func(t *testing.T) {
		emb := &fakeEmbedder{failText: "bad"}
		p := New(emb, nil, testOptions(), nil)

		records := []*types.ChunkRecord{
			{Document: "d", ChunkID: 0, Text: "good", TotalChunks: 3},
			{Document: "d", ChunkID: 1, Text: "bad", TotalChunks: 3},
			{Document: "d", ChunkID: 2, Text: "also good", TotalChunks: 3},
		}
		embedded, failed, err := p.EmbedRecords(context.Background(), uuid.New(), records)
		require.NoError(t, err)
		assert.Equal(t, 2, embedded)
		assert.Equal(t, 1, failed)
		assert.False(t, records[1].HasEmbedding())
		assert.True(t, records[2].HasEmbedding(), "chunk after the failure still embedded")
	})

	t.Run("cancellation aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := New(&fakeEmbedder{}, nil, testOptions(), nil)
		_, _, err := p.EmbedRecords(ctx, uuid.New(), []*types.ChunkRecord{
			{Document: "d", ChunkID: 0, Text: "x", TotalChunks: 1},
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_PersistentCacheSkipsProvider(t *testing.T) {
	store, err := embedcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	emb := &fakeEmbedder{}
	p := New(emb, store, testOptions(), nil)

	records := []*types.ChunkRecord{
		{Document: "d", ChunkID: 0, Text: "cached text", TotalChunks: 1},
	}
	_, _, err = p.EmbedRecords(context.Background(), uuid.New(), records)
	require.NoError(t, err)
	require.Equal(t, int32(1), emb.calls.Load())

	// Same text again: served from the persistent cache.
	fresh := []*types.ChunkRecord{
		{Document: "d2", ChunkID: 0, Text: "cached text", TotalChunks: 1},
	}
	_, _, err = p.EmbedRecords(context.Background(), uuid.New(), fresh)
	require.NoError(t, err)
	assert.Equal(t, int32(1), emb.calls.Load(), "no second provider call")
	assert.Equal(t, records[0].Embedding, fresh[0].Embedding)
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"),
		[]byte("A plain text document. It has two sentences."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"),
		[]byte("# Setup\nInstall the binary.\n# Usage\nRun the binary."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"),
		[]byte{0x00, 0x01}, 0644))

	paths, err := ListDocuments(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2, "binary file is not ingested")

	p := New(&fakeEmbedder{}, nil, testOptions(), nil)
	records, stats, err := p.Run(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DocumentsProcessed)
	assert.Equal(t, 0, stats.DocumentsFailed)
	assert.Equal(t, len(records), stats.ChunksCreated)
	assert.Equal(t, len(records), stats.ChunksEmbedded)
	assert.Equal(t, 0, stats.ChunksFailed)

	byDoc := map[string]int{}
	var sawContext bool
	for _, r := range records {
		byDoc[r.Document]++
		assert.True(t, r.HasEmbedding())
		if r.HeaderContext != "" {
			sawContext = true
		}
	}
	assert.Contains(t, byDoc, "plain.txt")
	assert.Contains(t, byDoc, "guide.md")
	assert.True(t, sawContext, "markdown chunks carry header context")
}

func TestPipeline_RunSkipsFailingDocument(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("Readable content here."), 0644))

	p := New(&fakeEmbedder{}, nil, testOptions(), nil)
	records, stats, err := p.Run(context.Background(),
		[]string{filepath.Join(dir, "missing.txt"), good})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Equal(t, 1, stats.DocumentsFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.NotEmpty(t, records)
}

func TestPipeline_ProgressEvents(t *testing.T) {
	events := make(chan ProgressEvent, 64)
	opts := testOptions()
	opts.Progress = events

	p := New(&fakeEmbedder{}, nil, opts, nil)
	src := NewStaticSource("doc.txt", "Some text worth chunking right here. More of it. ")

	jobID := uuid.New()
	records, err := p.ProcessDocument(context.Background(), jobID, src)
	require.NoError(t, err)
	_, _, err = p.EmbedRecords(context.Background(), jobID, records)
	require.NoError(t, err)
	close(events)

	stages := map[string]bool{}
	for ev := range events {
		assert.Equal(t, jobID, ev.JobID)
		stages[ev.Stage] = true
	}
	assert.True(t, stages[StageExtract])
	assert.True(t, stages[StageChunk])
	assert.True(t, stages[StageEmbed])
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	var content string
	for i := 0; i < 25; i++ {
		content += fmt.Sprintf("line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	src, err := NewFileSource(path, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", src.ID())

	var batches []Batch
	for {
		b, err := src.Next(context.Background())
		if err != nil {
			break
		}
		batches = append(batches, b)
	}
	require.Len(t, batches, 3)
	assert.Equal(t, 10, batches[0].Unit)
	assert.Equal(t, 25, batches[2].Unit)
	for _, b := range batches {
		assert.Equal(t, 25, b.TotalUnits)
	}
}
