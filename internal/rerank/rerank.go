package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

const systemPrompt = `You are an assistant that filters search results for relevance. ` +
	`You will receive a user query and a numbered list of text fragments. ` +
	`Reply with only the numbers of the fragments that are relevant to the query, ` +
	`separated by commas, most relevant first. For example: "1, 3, 5". ` +
	`If no fragment is relevant, reply with "0".`

var intPattern = regexp.MustCompile(`\d+`)

// Overlay re-orders scored chunks through a Judge. It never fails: on any
// judge error or unusable reply the input is returned unchanged.
type Overlay struct {
	judge  Judge
	logger *slog.Logger
}

// NewOverlay wraps judge in a pass-through-on-failure overlay.
func NewOverlay(judge Judge, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{judge: judge, logger: logger}
}

// Rerank asks the judge which candidates answer the query and returns them
// in the judge's order, truncated to maxResults when positive. The judge
// saying "0" means nothing is relevant and yields an empty result. Any
// failure returns candidates unchanged.
func (o *Overlay) Rerank(ctx context.Context, query string, candidates []types.ScoredChunk, maxResults int) []types.ScoredChunk {
	if len(candidates) == 0 {
		return candidates
	}

	reply, err := o.judge.Complete(ctx, systemPrompt, buildUserPrompt(query, candidates))
	if err != nil {
		o.logger.Warn("rerank judge failed, keeping original order", "error", err)
		return candidates
	}

	selected, none := parseSelection(reply, len(candidates))
	if none {
		o.logger.Info("rerank judge found no relevant candidates", "query", query)
		return nil
	}
	if len(selected) == 0 {
		o.logger.Warn("rerank reply unparseable, keeping original order", "reply", reply)
		return candidates
	}

	reordered := make([]types.ScoredChunk, 0, len(selected))
	for _, n := range selected {
		reordered = append(reordered, candidates[n-1])
	}
	if maxResults > 0 && len(reordered) > maxResults {
		reordered = reordered[:maxResults]
	}
	return reordered
}

// buildUserPrompt numbers candidates from 1 and includes each similarity
// score so the judge sees the ranker's opinion.
func buildUserPrompt(query string, candidates []types.ScoredChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nFragments:\n", query)
	for i, sc := range candidates {
		fmt.Fprintf(&b, "%d. (similarity %.3f) %s\n\n", i+1, sc.Score, sc.Chunk.Text)
	}
	b.WriteString("Which fragment numbers are relevant to the query?")
	return b.String()
}

// parseSelection extracts candidate numbers from a judge reply. It returns
// the in-range selections in reply order with duplicates dropped (first
// occurrence wins), or none=true when the reply contains the 0 sentinel.
// An empty selection with none=false means the reply was unusable.
func parseSelection(reply string, candidateCount int) (selected []int, none bool) {
	matches := intPattern.FindAllString(reply, -1)
	taken := make(map[int]struct{})
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n == 0 {
			return nil, true
		}
		if n < 1 || n > candidateCount {
			continue
		}
		if _, dup := taken[n]; dup {
			continue
		}
		taken[n] = struct{}{}
		selected = append(selected, n)
	}
	return selected, false
}
