package embedcache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned when no entry exists for a hash.
var ErrNotFound = errors.New("embedcache: entry not found")

// Entry is one cached embedding.
type Entry struct {
	Hash      string
	Provider  string
	Model     string
	Dimension int
	Vector    []float64
}

// Store is a SQLite-backed embedding cache.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	hash       TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	model      TEXT NOT NULL,
	dimension  INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(provider, model);
`

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids lock errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the entry for hash, or ErrNotFound.
func (s *Store) Get(ctx context.Context, hash string) (*Entry, error) {
	var (
		entry Entry
		blob  []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT hash, provider, model, dimension, vector FROM embeddings WHERE hash = ?",
		hash,
	).Scan(&entry.Hash, &entry.Provider, &entry.Model, &entry.Dimension, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	entry.Vector = deserializeVector(blob)
	return &entry, nil
}

// Put inserts or replaces the entry for its hash.
func (s *Store) Put(ctx context.Context, entry *Entry) error {
	if entry.Hash == "" {
		return fmt.Errorf("cache entry requires a hash")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (hash, provider, model, dimension, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Hash, entry.Provider, entry.Model, len(entry.Vector),
		serializeVector(entry.Vector), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached embeddings.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// serializeVector converts a float64 slice to a little-endian byte blob
func serializeVector(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float64 slice
func deserializeVector(blob []byte) []float64 {
	vector := make([]float64, len(blob)/8)
	for i := range vector {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
