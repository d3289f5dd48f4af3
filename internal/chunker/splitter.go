package chunker

import (
	"errors"
	"strings"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 200

	// maxSplitPasses bounds a single split call. Pathological input where
	// boundary search keeps landing on the same offsets would otherwise
	// loop forever.
	maxSplitPasses = 1000
)

// ErrSplitIterationLimit is returned when a split hits maxSplitPasses.
// Chunks produced before the limit are still returned with the error.
var ErrSplitIterationLimit = errors.New("chunker: split iteration limit reached")

// sentenceDelims are tried in priority order when looking for a cut point.
// Each is exactly two characters; a chunk ends just after the delimiter.
var sentenceDelims = []string{". ", "! ", "? ", "\n\n"}

// Splitter cuts text into chunks of at most size characters with overlap
// characters shared between neighbours. It keeps no state of its own: the
// cursor and seen set belong to the caller, which lets one Splitter serve
// many documents.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter returns a Splitter with the given size and overlap.
// Non-positive values fall back to the defaults, and overlap is clamped
// below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Size returns the configured maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts buffer into chunks starting near cursor (the end position of
// the previous chunk in the same buffer, 0 for a fresh one). Empty and
// already-seen chunks are dropped; new chunks are added to seen. It returns
// the chunks and the cursor to resume from on the next call.
//
// The returned cursor deliberately steps back by the overlap when chunks
// were produced, so the tail of the last chunk is re-read as context for
// the next one.
func (s *Splitter) Split(buffer string, cursor int, seen map[string]struct{}) ([]string, int, error) {
	return s.split([]rune(buffer), cursor, seen)
}

func (s *Splitter) split(buf []rune, cursor int, seen map[string]struct{}) ([]string, int, error) {
	// Short-buffer fast path: everything fits in one chunk.
	if len(buf) <= s.size && cursor == 0 {
		chunk := strings.TrimSpace(string(buf))
		if chunk == "" {
			return nil, len(buf), nil
		}
		if _, dup := seen[chunk]; dup {
			return nil, len(buf), nil
		}
		seen[chunk] = struct{}{}
		return []string{chunk}, len(buf), nil
	}

	var chunks []string
	start := cursor - s.overlap
	if start < 0 {
		start = 0
	}

	passes := 0
	for start < len(buf) {
		passes++
		if passes > maxSplitPasses {
			return chunks, s.finalCursor(buf, start, chunks), ErrSplitIterationLimit
		}

		end := start + s.size
		if end < len(buf) {
			// Prefer to cut after a sentence boundary. Delimiters are
			// tried by priority, not position: the first kind found
			// anywhere in the window wins.
			for _, delim := range sentenceDelims {
				if at := lastIndexRunes(buf, delim, start, end); at >= 0 {
					end = at + len([]rune(delim))
					break
				}
			}
		} else {
			end = len(buf)
		}

		chunk := strings.TrimSpace(string(buf[start:end]))
		if chunk != "" {
			if _, dup := seen[chunk]; !dup {
				seen[chunk] = struct{}{}
				chunks = append(chunks, chunk)
			}
		}

		next := end - s.overlap
		if next <= start {
			// Boundary search failed to advance; jump a full chunk so
			// the loop always makes progress.
			next = start + s.size
		}
		start = next
	}

	return chunks, s.finalCursor(buf, start, chunks), nil
}

// finalCursor picks the resume position: just behind the last chunk end
// when output was produced, otherwise the whole buffer was consumed.
func (s *Splitter) finalCursor(buf []rune, start int, chunks []string) int {
	if len(chunks) > 0 {
		return start + s.overlap
	}
	return len(buf)
}

// lastIndexRunes finds the last occurrence of delim within buf[start:end),
// returning its rune offset in buf or -1.
func lastIndexRunes(buf []rune, delim string, start, end int) int {
	d := []rune(delim)
	if end > len(buf) {
		end = len(buf)
	}
	for i := end - len(d); i >= start; i-- {
		match := true
		for j := range d {
			if buf[i+j] != d[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
