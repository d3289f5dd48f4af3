package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raglabs/docsearch-mcp/internal/config"
	"github.com/raglabs/docsearch-mcp/internal/embedder"
	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/internal/ranker"
	"github.com/raglabs/docsearch-mcp/internal/rerank"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

var (
	searchTopK   int
	searchMinSim float64
	searchRerank bool
	searchJudge  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(args[0])
		if query == "" {
			return types.ErrEmptyQuery
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ix, err := index.Load(cfg.Storage.IndexPath)
		if errors.Is(err, index.ErrNotFound) {
			return fmt.Errorf("no index at %s; run `docsearch index` first", cfg.Storage.IndexPath)
		}
		if err != nil {
			return err
		}

		emb, err := embedder.New(cfg.EmbedderConfig())
		if err != nil {
			return err
		}
		defer func() { _ = emb.Close() }()

		queryVec, err := emb.Embed(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}

		var minSim *float64
		if cmd.Flags().Changed("min-similarity") {
			minSim = &searchMinSim
		}

		thresholds := index.NewThresholdStore(cfg.Storage.ThresholdPath, logger)
		results, stats := ranker.New(thresholds, logger).Search(ix, queryVec, searchTopK, minSim)

		if searchRerank && len(results) > 0 {
			results = applyRerank(cmd.Context(), cfg, logger, query, results, searchTopK, searchJudge)
		}

		out := map[string]interface{}{
			"query":   query,
			"results": results,
			"stats":   stats,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// applyRerank re-orders results through the configured judge. A judge that
// cannot be constructed degrades to the ranker's order with a warning; the
// search result is never lost to a judge-side problem.
func applyRerank(ctx context.Context, cfg *config.Config, logger *slog.Logger, query string, results []types.ScoredChunk, topK int, provider string) []types.ScoredChunk {
	judge, err := rerank.NewJudge(cfg.JudgeConfig(provider))
	if err != nil {
		logger.Warn("judge unavailable, skipping rerank", "error", err)
		return results
	}
	return rerank.NewOverlay(judge, logger).Rerank(ctx, query, results, topK)
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "maximum results")
	searchCmd.Flags().Float64Var(&searchMinSim, "min-similarity", 0, "similarity threshold override")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "re-order results through the LLM judge")
	searchCmd.Flags().StringVar(&searchJudge, "judge", "", "judge backend (local or deepseek)")
}
