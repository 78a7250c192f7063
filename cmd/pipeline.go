package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Daily heatwave/demand batch pipeline",
	Long:  "Rebuilds the derived tables: daily temperature aggregates, climatological thresholds, heatwave flags, daily load aggregates, and the unified heat_load_daily table.",
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}

// openStore opens the SQLite database from cfg.Store.Path.
func openStore() (*store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, eris.New("no database path configured (set store.path)")
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "open store %s", cfg.Store.Path)
	}
	return st, nil
}
