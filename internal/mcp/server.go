package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/raglabs/docsearch-mcp/internal/config"
	"github.com/raglabs/docsearch-mcp/internal/embedcache"
	"github.com/raglabs/docsearch-mcp/internal/embedder"
	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/internal/pipeline"
	"github.com/raglabs/docsearch-mcp/internal/ranker"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp        *server.MCPServer
	cfg        *config.Config
	logger     *slog.Logger
	embedder   embedder.Embedder
	cache      *embedcache.Store
	thresholds *index.ThresholdStore
	ranker     *ranker.Ranker
}

// NewServer wires the search stack from config.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	cache, err := embedcache.Open(cfg.Storage.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	thresholds := index.NewThresholdStore(cfg.Storage.ThresholdPath, logger)

	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		cfg:        cfg,
		logger:     logger,
		embedder:   emb,
		cache:      cache,
		thresholds: thresholds,
		ranker:     ranker.New(thresholds, logger),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio until the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.cache.Close()
		_ = s.embedder.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(indexDocumentsTool(), s.handleIndexDocuments)
	s.mcp.AddTool(indexStatsTool(), s.handleIndexStats)
	s.mcp.AddTool(getThresholdTool(), s.handleGetThreshold)
	s.mcp.AddTool(setThresholdTool(), s.handleSetThreshold)
}

// newPipeline builds a pipeline for one indexing request, honoring
// per-request chunking overrides.
func (s *Server) newPipeline(chunkSize, overlap int) *pipeline.Pipeline {
	if chunkSize <= 0 {
		chunkSize = s.cfg.Chunking.Size
	}
	if overlap <= 0 {
		overlap = s.cfg.Chunking.Overlap
	}
	return pipeline.New(s.embedder, s.cache, pipeline.Options{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		BatchLines: s.cfg.Chunking.BatchLines,
	}, s.logger)
}
