package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/internal/pipeline"
	"github.com/raglabs/docsearch-mcp/internal/rerank"
	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeBadPath       = -32002 // Path missing or not a directory
)

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 5)
	if topK < 1 || topK > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	var minSimilarity *float64
	if val, ok := args["min_similarity"].(float64); ok {
		if val < 0 || val > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "min_similarity must be in [0, 1]", map[string]interface{}{
				"param": "min_similarity",
				"value": val,
			})
		}
		minSimilarity = &val
	}

	useRerank := getBoolDefault(args, "rerank", false)
	judgeProvider := getStringDefault(args, "judge_provider", "")

	ix, err := index.Load(s.cfg.Storage.IndexPath)
	if errors.Is(err, index.ErrNotFound) {
		// Missing index is an empty answer, not a protocol error.
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"query":   query,
			"results": []interface{}{},
			"stats":   types.SearchStats{MinSimilarity: s.thresholds.Get()},
			"message": "No index found. Use index_documents to build one.",
		})), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to embed query", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results, stats := s.ranker.Search(ix, queryVec, topK, minSimilarity)

	reranked := false
	if useRerank && len(results) > 0 {
		judge, err := rerank.NewJudge(s.cfg.JudgeConfig(judgeProvider))
		if err != nil {
			// Judge misconfiguration degrades to the ranker's order.
			s.logger.Warn("judge unavailable, skipping rerank", "error", err)
		} else {
			results = rerank.NewOverlay(judge, s.logger).Rerank(ctx, query, results, topK)
			reranked = true
		}
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, sc := range results {
		item := map[string]interface{}{
			"document":     sc.Chunk.Document,
			"chunk_id":     sc.Chunk.ChunkID,
			"text":         sc.Chunk.Text,
			"similarity":   sc.Score,
			"total_chunks": sc.Chunk.TotalChunks,
		}
		if sc.Chunk.HeaderContext != "" {
			item["header_context"] = sc.Chunk.HeaderContext
		}
		items = append(items, item)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":    query,
		"results":  items,
		"stats":    stats,
		"reranked": reranked,
	})), nil
}

// handleIndexDocuments handles the index_documents tool invocation
func (s *Server) handleIndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeBadPath, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, newMCPError(ErrorCodeBadPath, "path must be an existing directory", map[string]interface{}{
			"param": "path",
			"value": path,
		})
	}

	paths, err := pipeline.ListDocuments(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	p := s.newPipeline(getIntDefault(args, "chunk_size", 0), getIntDefault(args, "overlap", 0))
	records, stats, err := p.Run(ctx, paths)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ix := index.New()
	ix.Append(records...)
	if err := ix.Save(s.cfg.Storage.IndexPath); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":             true,
		"documents_processed": stats.DocumentsProcessed,
		"documents_failed":    stats.DocumentsFailed,
		"chunks_created":      stats.ChunksCreated,
		"chunks_embedded":     stats.ChunksEmbedded,
		"chunks_failed":       stats.ChunksFailed,
		"duration_ms":         stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		if len(stats.ErrorMessages) > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = len(stats.ErrorMessages)
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStats handles the index_stats tool invocation
func (s *Server) handleIndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ix, err := index.Load(s.cfg.Storage.IndexPath)
	if errors.Is(err, index.ErrNotFound) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"message": "No index found. Use index_documents to build one.",
		})), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats := ix.Stats()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":          true,
		"total_chunks":     stats.TotalChunks,
		"unique_documents": stats.UniqueDocuments,
		"embedded_chunks":  stats.EmbeddedChunks,
		"documents":        stats.Documents,
		"threshold":        s.thresholds.Get(),
	})), nil
}

// handleGetThreshold handles the get_threshold tool invocation
func (s *Server) handleGetThreshold(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"min_similarity": s.thresholds.Get(),
	})), nil
}

// handleSetThreshold handles the set_threshold tool invocation
func (s *Server) handleSetThreshold(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	value, ok := args["value"].(float64)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "value parameter is required", map[string]interface{}{
			"param":  "value",
			"reason": "missing or not a number",
		})
	}
	if err := s.thresholds.Set(value); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid threshold", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"min_similarity": value,
		"stored":         true,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
