package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raglabs/docsearch-mcp/internal/embedcache"
	"github.com/raglabs/docsearch-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		// stdout carries the MCP protocol; everything else goes to stderr.
		logger.Info("starting MCP server",
			"version", version, "sqlite_driver", embedcache.DriverName,
			"build_mode", embedcache.BuildMode)

		server, err := mcp.NewServer(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			logger.Info("MCP server ready, listening on stdio")
			errChan <- server.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			logger.Info("shutting down", "signal", sig.String())
			cancel()
			return nil
		case err := <-errChan:
			return err
		}
	},
}
