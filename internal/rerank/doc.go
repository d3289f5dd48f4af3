// Package rerank re-orders similarity search results by asking an external
// LLM judge which candidates actually answer the query. The overlay is
// strictly best-effort: any judge failure, timeout or unparseable reply
// falls back to the original result order, so reranking can never lose a
// successful search.
package rerank
