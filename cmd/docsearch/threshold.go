package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raglabs/docsearch-mcp/internal/index"
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Inspect or change the minimum-similarity threshold",
}

var thresholdGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store := index.NewThresholdStore(cfg.Storage.ThresholdPath, logger)
		fmt.Printf("%g\n", store.Get())
		return nil
	},
}

var thresholdSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Store a new threshold in [0, 1]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", args[0], err)
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store := index.NewThresholdStore(cfg.Storage.ThresholdPath, logger)
		if err := store.Set(value); err != nil {
			return err
		}
		fmt.Printf("threshold set to %g\n", value)
		return nil
	},
}

func init() {
	thresholdCmd.AddCommand(thresholdGetCmd)
	thresholdCmd.AddCommand(thresholdSetCmd)
}
