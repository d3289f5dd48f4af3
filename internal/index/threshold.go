package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultMinSimilarity is the threshold used when none has been stored.
const DefaultMinSimilarity = 0.5

// thresholdDoc is the on-disk shape of the stored threshold.
type thresholdDoc struct {
	MinSimilarity float64 `json:"min_similarity"`
}

// ThresholdStore persists the minimum-similarity threshold in its own
// small JSON document beside the index.
type ThresholdStore struct {
	path   string
	logger *slog.Logger
}

// NewThresholdStore returns a store backed by the given file path.
func NewThresholdStore(path string, logger *slog.Logger) *ThresholdStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdStore{path: path, logger: logger}
}

// Get returns the stored threshold. A missing or unreadable file yields
// the default, never an error.
func (t *ThresholdStore) Get() float64 {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("threshold file unreadable, using default",
				"path", t.path, "error", err)
		}
		return DefaultMinSimilarity
	}

	var doc thresholdDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.logger.Warn("threshold file corrupt, using default",
			"path", t.path, "error", err)
		return DefaultMinSimilarity
	}
	if doc.MinSimilarity < 0 || doc.MinSimilarity > 1 {
		t.logger.Warn("stored threshold out of range, using default",
			"value", doc.MinSimilarity)
		return DefaultMinSimilarity
	}
	return doc.MinSimilarity
}

// Set stores a new threshold. Values must lie in [0, 1].
func (t *ThresholdStore) Set(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %g", value)
	}

	data, err := json.MarshalIndent(thresholdDoc{MinSimilarity: value}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode threshold: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create threshold directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".threshold-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write threshold: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace threshold: %w", err)
	}
	return nil
}
