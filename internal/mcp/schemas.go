package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search the indexed document corpus by semantic similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity (0.0-1.0); overrides the stored threshold",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"rerank": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-order results through the LLM relevance judge",
					"default":     false,
				},
				"judge_provider": map[string]interface{}{
					"type":        "string",
					"description": "Relevance judge backend when reranking",
					"enum":        []string{"local", "deepseek"},
				},
			},
			Required: []string{"query"},
		},
	}
}

// indexDocumentsTool returns the tool definition for index_documents
func indexDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documents",
		Description: "Index the text and markdown documents under a folder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the folder containing documents",
				},
				"chunk_size": map[string]interface{}{
					"type":        "integer",
					"description": "Chunk size in characters (defaults to the configured size)",
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Chunk overlap in characters (defaults to the configured overlap)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexStatsTool returns the tool definition for index_stats
func indexStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_stats",
		Description: "Report statistics about the current document index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getThresholdTool returns the tool definition for get_threshold
func getThresholdTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_threshold",
		Description: "Read the stored minimum-similarity threshold",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// setThresholdTool returns the tool definition for set_threshold
func setThresholdTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_threshold",
		Description: "Store a new minimum-similarity threshold",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"value": map[string]interface{}{
					"type":        "number",
					"description": "Threshold in [0.0, 1.0]",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"value"},
		},
	}
}
