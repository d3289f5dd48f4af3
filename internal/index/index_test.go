package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

func sampleRecords() []*types.ChunkRecord {
	return []*types.ChunkRecord{
		{
			Document:    "a.txt",
			ChunkID:     0,
			Text:        "First chunk.",
			TotalChunks: 2,
			Embedding:   []float64{0.1, 0.25, -0.333333333333333},
		},
		{
			Document:    "a.txt",
			ChunkID:     1,
			Text:        "Second chunk.",
			TotalChunks: 2,
		},
		{
			Document:      "b.md",
			ChunkID:       0,
			Text:          "Other doc.",
			HeaderContext: "Intro > Details",
			TotalChunks:   1,
			Embedding:     []float64{1, 0, 0},
		},
	}
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	ix := New()
	ix.Append(sampleRecords()...)
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	// Every field, embeddings included, must round-trip exactly.
	require.Equal(t, ix.Records(), loaded.Records())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_EmptyIsNotMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, New().Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestLoad_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty text", `[{"document":"a.txt","chunk_id":0,"text":"   ","total_chunks":1}]`},
		{"missing document", `[{"document":"","chunk_id":0,"text":"ok","total_chunks":1}]`},
		{"negative chunk id", `[{"document":"a.txt","chunk_id":-1,"text":"ok","total_chunks":1}]`},
		{"null record", `[null]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := Load(path)
			assert.ErrorIs(t, err, types.ErrInvalidChunk)
		})
	}
}

func TestIndex_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")

	ix := New()
	ix.Append(sampleRecords()...)
	require.NoError(t, ix.Save(path))
	require.NoError(t, ix.Save(path)) // overwrite in place

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.json", entries[0].Name())
}

func TestIndex_Stats(t *testing.T) {
	ix := New()
	ix.Append(sampleRecords()...)

	stats := ix.Stats()
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueDocuments)
	assert.Equal(t, 2, stats.EmbeddedChunks)
	assert.Equal(t, []string{"a.txt", "b.md"}, stats.Documents)
}

func TestThresholdStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threshold.json")
	store := NewThresholdStore(path, nil)

	t.Run("absent file yields default", func(t *testing.T) {
		assert.Equal(t, DefaultMinSimilarity, store.Get())
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(0.62))
		assert.InDelta(t, 0.62, store.Get(), 1e-9)
	})

	t.Run("rejects out of range", func(t *testing.T) {
		assert.Error(t, store.Set(-0.1))
		assert.Error(t, store.Set(1.5))
	})

	t.Run("corrupt file yields default", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "threshold.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
		assert.Equal(t, DefaultMinSimilarity, NewThresholdStore(bad, nil).Get())
	})
}
