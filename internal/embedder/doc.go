// Package embedder turns chunk text into embedding vectors through remote
// providers. Two providers are supported: a local Ollama instance and an
// OpenAI-compatible API. Both share retry-with-backoff behaviour and an
// in-memory LRU cache keyed by content hash.
package embedder
