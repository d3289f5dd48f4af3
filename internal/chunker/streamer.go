package chunker

import (
	"log/slog"
	"strings"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// Streamer feeds batches of document text through a Splitter while keeping
// memory bounded. After each write only the overlap tail of the buffer is
// retained, so a document of any length is processed in O(size+overlap)
// space. A Streamer serves exactly one document and is not safe for
// concurrent use.
type Streamer struct {
	document string
	splitter *Splitter
	logger   *slog.Logger

	buf     []rune
	cursor  int
	nextID  int
	seen    map[string]struct{}
	records []*types.ChunkRecord
}

// NewStreamer returns a Streamer for one document.
func NewStreamer(document string, splitter *Splitter, logger *slog.Logger) *Streamer {
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		document: document,
		splitter: splitter,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// Write appends a batch of text and returns the chunk records it completed.
// A non-nil error is always ErrSplitIterationLimit; records produced before
// the limit are still returned and retained.
func (st *Streamer) Write(batch string) ([]*types.ChunkRecord, error) {
	st.buf = append(st.buf, []rune(batch)...)

	chunks, cursor, err := st.splitter.split(st.buf, st.cursor, st.seen)
	if err != nil {
		st.logger.Warn("chunk split aborted",
			"document", st.document,
			"buffer_len", len(st.buf),
			"error", err)
	}
	records := st.emit(chunks)
	st.shrink(cursor)
	return records, err
}

// Flush drains whatever text remains in the buffer into final chunks.
// Call it once, after the last Write.
func (st *Streamer) Flush() ([]*types.ChunkRecord, error) {
	if strings.TrimSpace(string(st.buf)) == "" {
		return nil, nil
	}
	chunks, _, err := st.splitter.split(st.buf, st.cursor, st.seen)
	if err != nil {
		st.logger.Warn("chunk split aborted on flush",
			"document", st.document,
			"error", err)
	}
	st.buf = nil
	st.cursor = 0
	return st.emit(chunks), err
}

// Finish backfills total_chunks on every record of the document and returns
// the full record list in chunk order.
func (st *Streamer) Finish() []*types.ChunkRecord {
	for _, r := range st.records {
		r.TotalChunks = st.nextID
	}
	return st.records
}

// Count returns the number of chunks emitted so far.
func (st *Streamer) Count() int { return st.nextID }

func (st *Streamer) emit(chunks []string) []*types.ChunkRecord {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]*types.ChunkRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, &types.ChunkRecord{
			Document: st.document,
			ChunkID:  st.nextID,
			Text:     chunk,
		})
		st.nextID++
	}
	st.records = append(st.records, records...)
	return records
}

// shrink discards consumed text, keeping the overlap tail so the next batch
// still sees the context behind the cursor.
func (st *Streamer) shrink(cursor int) {
	overlap := st.splitter.Overlap()
	if cursor > overlap {
		from := cursor - overlap
		if from > len(st.buf) {
			from = len(st.buf)
		}
		st.buf = append([]rune(nil), st.buf[from:]...)
		st.cursor = overlap
		return
	}
	keep := len(st.buf) - overlap
	if keep < 0 {
		keep = 0
	}
	st.buf = append([]rune(nil), st.buf[keep:]...)
	st.cursor = overlap
	if len(st.buf) < overlap {
		st.cursor = len(st.buf)
	}
}
