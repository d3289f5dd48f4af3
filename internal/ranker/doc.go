// Package ranker scores query embeddings against an index with cosine
// similarity and applies the persisted minimum-similarity threshold,
// returning ranked results plus the statistics behind them.
package ranker
