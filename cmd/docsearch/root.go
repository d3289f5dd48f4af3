package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raglabs/docsearch-mcp/internal/config"
)

var (
	version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:          "docsearch",
	Short:        "Semantic document search over a local vector index",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config file")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(thresholdCmd)
}

// loadConfig reads the config file and builds the process logger. Logs go
// to stderr so stdout stays free for command output and the MCP protocol.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
