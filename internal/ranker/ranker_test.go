package ranker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical vectors", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"opposite vectors", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"orthogonal vectors", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"dimension mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
		{"zero magnitude", []float64{0, 0}, []float64{1, 2}, 0.0},
		{"both empty", nil, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func indexWithScores() *index.Index {
	// Against query (1,0) these embed to similarities 0.9, 0.4, 0.6.
	ix := index.New()
	ix.Append(
		&types.ChunkRecord{Document: "d", ChunkID: 0, Text: "high", TotalChunks: 3,
			Embedding: []float64{0.9, 0.43588989435}},
		&types.ChunkRecord{Document: "d", ChunkID: 1, Text: "low", TotalChunks: 3,
			Embedding: []float64{0.4, 0.91651513899}},
		&types.ChunkRecord{Document: "d", ChunkID: 2, Text: "mid", TotalChunks: 3,
			Embedding: []float64{0.6, 0.8}},
	)
	return ix
}

func TestRanker_Search(t *testing.T) {
	r := New(nil, nil)
	query := []float64{1, 0}

	t.Run("threshold and top_k", func(t *testing.T) {
		min := 0.5
		results, stats := r.Search(indexWithScores(), query, 2, &min)

		require.Len(t, results, 2)
		assert.Equal(t, "high", results[0].Chunk.Text)
		assert.Equal(t, "mid", results[1].Chunk.Text)
		assert.InDelta(t, 0.9, results[0].Score, 1e-6)
		assert.InDelta(t, 0.6, results[1].Score, 1e-6)

		assert.Equal(t, 3, stats.TotalChecked)
		assert.Equal(t, 2, stats.TotalFiltered)
		assert.Equal(t, 1, stats.TotalRejected)
		assert.InDelta(t, 0.5, stats.MinSimilarity, 1e-9)
		assert.InDelta(t, 0.9, stats.BestSimilarity, 1e-6)
		assert.InDelta(t, 0.9, stats.BestFilteredSimilarity, 1e-6)
	})

	t.Run("chunks without embeddings are skipped", func(t *testing.T) {
		ix := indexWithScores()
		ix.Append(&types.ChunkRecord{Document: "d", ChunkID: 3, Text: "bare", TotalChunks: 4})

		min := 0.0
		_, stats := r.Search(ix, query, 10, &min)
		assert.Equal(t, 3, stats.TotalChecked, "unembedded chunk excluded from counters")
	})

	t.Run("empty index", func(t *testing.T) {
		min := 0.5
		results, stats := r.Search(index.New(), query, 5, &min)
		assert.Empty(t, results)
		assert.Equal(t, 0, stats.TotalChecked)
		assert.Zero(t, stats.BestSimilarity)
		assert.Zero(t, stats.BestFilteredSimilarity)
	})

	t.Run("ties keep index order", func(t *testing.T) {
		ix := index.New()
		ix.Append(
			&types.ChunkRecord{Document: "d", ChunkID: 0, Text: "first", TotalChunks: 2,
				Embedding: []float64{1, 0}},
			&types.ChunkRecord{Document: "d", ChunkID: 1, Text: "second", TotalChunks: 2,
				Embedding: []float64{2, 0}},
		)
		min := 0.0
		results, _ := r.Search(ix, query, 5, &min)
		require.Len(t, results, 2)
		assert.Equal(t, "first", results[0].Chunk.Text)
		assert.Equal(t, "second", results[1].Chunk.Text)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		min := 0.5
		first, firstStats := r.Search(indexWithScores(), query, 2, &min)
		second, secondStats := r.Search(indexWithScores(), query, 2, &min)
		assert.Equal(t, first, second)
		assert.Equal(t, firstStats, secondStats)
	})
}

func TestRanker_ThresholdResolution(t *testing.T) {
	query := []float64{1, 0}

	t.Run("falls back to default without a store", func(t *testing.T) {
		r := New(nil, nil)
		_, stats := r.Search(indexWithScores(), query, 5, nil)
		assert.InDelta(t, index.DefaultMinSimilarity, stats.MinSimilarity, 1e-9)
	})

	t.Run("uses persisted threshold", func(t *testing.T) {
		store := index.NewThresholdStore(filepath.Join(t.TempDir(), "threshold.json"), nil)
		require.NoError(t, store.Set(0.85))

		r := New(store, nil)
		results, stats := r.Search(indexWithScores(), query, 5, nil)
		assert.InDelta(t, 0.85, stats.MinSimilarity, 1e-9)
		require.Len(t, results, 1)
		assert.Equal(t, "high", results[0].Chunk.Text)
	})

	t.Run("explicit argument wins over store", func(t *testing.T) {
		store := index.NewThresholdStore(filepath.Join(t.TempDir(), "threshold.json"), nil)
		require.NoError(t, store.Set(0.85))

		min := 0.3
		r := New(store, nil)
		results, stats := r.Search(indexWithScores(), query, 5, &min)
		assert.InDelta(t, 0.3, stats.MinSimilarity, 1e-9)
		assert.Len(t, results, 3)
	})
}
