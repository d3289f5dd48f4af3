// Package types defines the shared data structures passed between the
// chunking, embedding, indexing and search layers: chunk records, scored
// search results and the statistics attached to every search response.
package types
