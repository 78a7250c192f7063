package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "heatgrid",
	Short: "Heatwave and electricity-demand pipeline",
	Long:  "Ingests hourly weather and grid-load feeds, derives per-station heatwave flags against climatological thresholds, and joins them into a unified daily table.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
