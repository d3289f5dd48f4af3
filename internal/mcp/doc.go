// Package mcp exposes document indexing and similarity search as MCP tools
// over stdio: search_documents, index_documents, index_stats and the
// threshold pair get_threshold/set_threshold.
package mcp
