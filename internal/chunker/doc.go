// Package chunker splits document text into bounded, overlapping chunks.
//
// Splitter is the pure boundary-seeking algorithm: it cuts a buffer into
// chunks of at most Size characters, preferring to end each chunk at a
// sentence boundary, with Overlap characters of context carried between
// consecutive chunks. Streamer wraps a Splitter with per-document state so
// text can be fed in batches while memory stays bounded by Size+Overlap.
// SectionSplitter handles markdown-style documents: it chunks per section
// and attaches a header breadcrumb to every chunk it emits.
//
// All sizes and offsets are measured in characters (runes), not bytes, so
// multi-byte text chunks the same as ASCII.
package chunker
