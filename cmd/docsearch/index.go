package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raglabs/docsearch-mcp/internal/embedcache"
	"github.com/raglabs/docsearch-mcp/internal/embedder"
	"github.com/raglabs/docsearch-mcp/internal/index"
	"github.com/raglabs/docsearch-mcp/internal/pipeline"
)

var (
	indexChunkSize int
	indexOverlap   int
	indexOutput    string
)

var indexCmd = &cobra.Command{
	Use:   "index <folder>",
	Short: "Chunk, embed and index the documents under a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if indexChunkSize > 0 {
			cfg.Chunking.Size = indexChunkSize
		}
		if indexOverlap > 0 {
			cfg.Chunking.Overlap = indexOverlap
		}
		indexPath := cfg.Storage.IndexPath
		if indexOutput != "" {
			indexPath = indexOutput
		}

		paths, err := pipeline.ListDocuments(args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no ingestable documents under %s", args[0])
		}
		logger.Info("indexing", "folder", args[0], "documents", len(paths))

		emb, err := embedder.New(cfg.EmbedderConfig())
		if err != nil {
			return err
		}
		defer func() { _ = emb.Close() }()

		// Warn early when the local embedding service is down.
		if ollama, ok := emb.(*embedder.OllamaProvider); ok {
			if err := ollama.Ping(cmd.Context()); err != nil {
				return err
			}
		}

		cache, err := embedcache.Open(cfg.Storage.CachePath)
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		progress := make(chan pipeline.ProgressEvent, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range progress {
				if ev.Stage == pipeline.StageEmbed {
					logger.Info("embedding", "document", ev.Label,
						"current", ev.Current, "total", ev.Total)
				} else {
					logger.Debug("progress", "stage", ev.Stage,
						"document", ev.Label, "current", ev.Current, "total", ev.Total)
				}
			}
		}()

		p := pipeline.New(emb, cache, pipeline.Options{
			ChunkSize:  cfg.Chunking.Size,
			Overlap:    cfg.Chunking.Overlap,
			BatchLines: cfg.Chunking.BatchLines,
			Progress:   progress,
		}, logger)

		records, stats, err := p.Run(cmd.Context(), paths)
		close(progress)
		<-done
		if err != nil {
			return err
		}

		ix := index.New()
		ix.Append(records...)
		if err := ix.Save(indexPath); err != nil {
			return err
		}

		fmt.Printf("Indexed %d documents (%d failed): %d chunks, %d embedded, %d failed in %s\n",
			stats.DocumentsProcessed, stats.DocumentsFailed,
			stats.ChunksCreated, stats.ChunksEmbedded, stats.ChunksFailed,
			stats.Duration.Round(10*time.Millisecond))
		fmt.Printf("Index written to %s\n", indexPath)
		return nil
	},
}

func init() {
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk-size", 0, "chunk size in characters")
	indexCmd.Flags().IntVar(&indexOverlap, "overlap", 0, "chunk overlap in characters")
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "index file to write")
}
