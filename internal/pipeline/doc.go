// Package pipeline drives document ingestion end to end: sources yield
// text batches, the chunker turns them into records, the embedder attaches
// vectors (consulting the persistent cache first), and everything lands in
// the index. Documents run concurrently under an errgroup while provider
// calls are serialized through a semaphore; progress is reported as events
// on a channel.
package pipeline
