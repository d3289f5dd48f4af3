// Package embedcache is a persistent embedding cache backed by SQLite.
// Vectors are keyed by content hash, so re-indexing a corpus only embeds
// chunks whose text actually changed. The driver is chosen at build time:
// mattn/go-sqlite3 with CGO, modernc.org/sqlite otherwise.
package embedcache
