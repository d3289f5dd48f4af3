package ranker

import (
	"log/slog"
	"math"
	"sort"

	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// DefaultTopK is the result count used when the caller passes none.
const DefaultTopK = 5

// CosineSimilarity computes dot(a,b) / (|a|*|b|). It returns 0.0 when the
// vectors differ in dimension or either has zero magnitude; both are soft
// scoring outcomes, not faults.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ranker answers similarity queries against a loaded index.
type Ranker struct {
	thresholds *index.ThresholdStore
	logger     *slog.Logger
}

// New returns a Ranker that resolves its default threshold from store.
func New(store *index.ThresholdStore, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{thresholds: store, logger: logger}
}

// Search scores query against every embedded chunk in ix and returns the
// chunks at or above the effective threshold, descending by score, cut to
// topK. The threshold is minSimilarity when non-nil, else the persisted
// value, else the default. Chunks without embeddings are skipped and do
// not appear in any counter. Output is deterministic: ties keep index
// order.
func (r *Ranker) Search(ix *index.Index, query []float64, topK int, minSimilarity *float64) ([]types.ScoredChunk, types.SearchStats) {
	threshold := r.resolveThreshold(minSimilarity)
	if topK <= 0 {
		topK = DefaultTopK
	}

	all := make([]types.ScoredChunk, 0, ix.Len())
	for _, rec := range ix.Records() {
		if !rec.HasEmbedding() {
			r.logger.Debug("skipping chunk without embedding",
				"document", rec.Document, "chunk_id", rec.ChunkID)
			continue
		}
		all = append(all, types.ScoredChunk{
			Chunk: rec,
			Score: CosineSimilarity(query, rec.Embedding),
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	filtered := make([]types.ScoredChunk, 0, len(all))
	for _, sc := range all {
		if sc.Score >= threshold {
			filtered = append(filtered, sc)
		}
	}

	stats := types.SearchStats{
		TotalChecked:  len(all),
		TotalFiltered: len(filtered),
		TotalRejected: len(all) - len(filtered),
		MinSimilarity: threshold,
	}
	if len(all) > 0 {
		stats.BestSimilarity = all[0].Score
	}
	if len(filtered) > 0 {
		stats.BestFilteredSimilarity = filtered[0].Score
	}

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, stats
}

func (r *Ranker) resolveThreshold(minSimilarity *float64) float64 {
	if minSimilarity != nil {
		return *minSimilarity
	}
	if r.thresholds != nil {
		return r.thresholds.Get()
	}
	return index.DefaultMinSimilarity
}
