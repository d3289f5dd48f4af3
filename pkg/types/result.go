package types

// ScoredChunk pairs a chunk with its cosine similarity against a query.
// Scores lie in [-1, 1]; result sets are ordered descending by score with
// index order preserved on ties.
type ScoredChunk struct {
	Chunk *ChunkRecord `json:"chunk"`
	Score float64      `json:"score"`
}

// SearchStats describes how a result set was produced. TotalChecked counts
// only chunks that carried an embedding; chunks without one are skipped
// before scoring and appear in no counter.
type SearchStats struct {
	TotalChecked           int     `json:"total_checked"`
	TotalFiltered          int     `json:"total_filtered"`
	TotalRejected          int     `json:"total_rejected"`
	MinSimilarity          float64 `json:"min_similarity"`
	BestSimilarity         float64 `json:"best_similarity"`
	BestFilteredSimilarity float64 `json:"best_filtered_similarity"`
}
