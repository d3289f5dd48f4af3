package chunker

import (
	"log/slog"
	"strings"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// preambleHeader names the implicit section for text before the first
// header of a structured document.
const preambleHeader = "Introduction"

// section is one header-delimited region of a document. Offsets are rune
// positions into the document text. The preamble uses level 0, which sits
// above every real header level.
type section struct {
	level  int
	header string
	start  int // first rune of the body
	end    int // one past the last rune of the body
}

// SectionSplitter chunks markdown-style documents per section, attaching a
// header breadcrumb to every chunk. Sections that fit within the chunk size
// become one chunk; larger ones are cut by the wrapped Splitter with overlap
// confined to the section.
type SectionSplitter struct {
	splitter *Splitter
	logger   *slog.Logger
}

// NewSectionSplitter returns a SectionSplitter around the given Splitter.
func NewSectionSplitter(splitter *Splitter, logger *slog.Logger) *SectionSplitter {
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SectionSplitter{splitter: splitter, logger: logger}
}

// SplitDocument chunks an entire structured document. Text without any
// headers degrades to ordinary streaming chunking with empty header
// context. A non-nil error is always ErrSplitIterationLimit from an
// oversized section; chunks from other sections are unaffected and the
// partial output is returned.
func (ss *SectionSplitter) SplitDocument(document, text string) ([]*types.ChunkRecord, error) {
	runes := []rune(text)
	headers := scanHeaders(runes)

	if len(headers) == 0 {
		st := NewStreamer(document, ss.splitter, ss.logger)
		_, err := st.Write(text)
		if err == nil {
			_, err = st.Flush()
		} else {
			_, _ = st.Flush()
		}
		return st.Finish(), err
	}

	sections := buildSections(runes, headers)

	var (
		crumbs   []section
		records  []*types.ChunkRecord
		seen     = make(map[string]struct{})
		nextID   = 0
		firstErr error
	)
	for _, sec := range sections {
		// Pop siblings and deeper entries, then push this section.
		for len(crumbs) > 0 && crumbs[len(crumbs)-1].level >= sec.level {
			crumbs = crumbs[:len(crumbs)-1]
		}
		crumbs = append(crumbs, sec)
		context := joinCrumbs(crumbs)

		body := runes[sec.start:sec.end]
		var chunks []string
		if len(body) <= ss.splitter.Size() {
			chunk := strings.TrimSpace(string(body))
			if chunk != "" {
				if _, dup := seen[chunk]; !dup {
					seen[chunk] = struct{}{}
					chunks = []string{chunk}
				}
			}
		} else {
			var err error
			chunks, _, err = ss.splitter.split(body, 0, seen)
			if err != nil {
				ss.logger.Warn("section split aborted",
					"document", document,
					"header", sec.header,
					"error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		for _, chunk := range chunks {
			records = append(records, &types.ChunkRecord{
				Document:      document,
				ChunkID:       nextID,
				Text:          chunk,
				HeaderContext: context,
			})
			nextID++
		}
	}

	for _, r := range records {
		r.TotalChunks = nextID
	}
	return records, firstErr
}

// scanHeaders finds markdown headers: 1-6 '#' characters, a space, then
// text. Returned sections have start/end covering the header line itself;
// bodies are resolved later.
func scanHeaders(runes []rune) []section {
	var headers []section
	offset := 0
	for _, line := range strings.Split(string(runes), "\n") {
		lineLen := len([]rune(line))
		if level, text, ok := parseHeaderLine(line); ok {
			headers = append(headers, section{
				level:  level,
				header: text,
				start:  offset,
				end:    offset + lineLen + 1, // past the newline
			})
		}
		offset += lineLen + 1
	}
	// The last line has no trailing newline; clip the final header end.
	if n := len(headers); n > 0 && headers[n-1].end > len(runes) {
		headers[n-1].end = len(runes)
	}
	return headers
}

// parseHeaderLine reports whether a line is a markdown header and returns
// its level and trimmed header text.
func parseHeaderLine(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level < 1 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(line[level+1:])
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

// buildSections resolves each header's body span and prepends the implicit
// preamble section when text precedes the first header.
func buildSections(runes []rune, headers []section) []section {
	var sections []section
	if headers[0].start > 0 {
		sections = append(sections, section{
			level:  0,
			header: preambleHeader,
			start:  0,
			end:    headers[0].start,
		})
	}
	for i, h := range headers {
		end := len(runes)
		for j := i + 1; j < len(headers); j++ {
			if headers[j].level <= h.level {
				end = headers[j].start
				break
			}
		}
		sections = append(sections, section{
			level:  h.level,
			header: h.header,
			start:  h.end,
			end:    end,
		})
	}
	return sections
}

func joinCrumbs(crumbs []section) string {
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		parts[i] = c.header
	}
	return strings.Join(parts, " > ")
}
