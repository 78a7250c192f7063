package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/stage"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Rebuild the derived tables",
	Long: `Rebuild the derived tables from the raw hourly feeds.

Stages run strictly in order: daily-temp, thresholds, heat-flags,
daily-load, unified. Each stage drops and recreates its own table, so
re-running is always safe. Use --stage to rebuild exactly one stage, or
--from to rebuild a stage and everything after it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "pipeline.run"))

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		// Ensure the raw tables and ledger exist.
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "pipeline run: migrate")
		}

		stations, err := cfg.StationRegions()
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		only, _ := cmd.Flags().GetString("stage")
		from, _ := cmd.Flags().GetString("from")
		opts := stage.RunOpts{Only: only, From: from}

		log.Info("starting pipeline",
			zap.String("stage", only),
			zap.String("from", from),
			zap.Int("stations", len(stations)),
		)

		engine := stage.NewEngine(st, stage.All(stations))
		if err := engine.Run(ctx, opts); err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		// Per-table row counts, raw feeds included, matching what an
		// operator checks first after a run.
		for _, table := range store.Tables {
			exists, err := st.TableExists(ctx, table)
			if err != nil {
				return eris.Wrap(err, "pipeline run: report")
			}
			if !exists {
				continue
			}
			n, err := st.TableCount(ctx, table)
			if err != nil {
				return eris.Wrap(err, "pipeline run: report")
			}
			fmt.Printf("%s: %d rows\n", table, n)
		}

		fmt.Println("Pipeline complete")
		return nil
	},
}

func init() {
	pipelineRunCmd.Flags().String("stage", "", "run exactly this stage")
	pipelineRunCmd.Flags().String("from", "", "run this stage and everything after it")
	pipelineCmd.AddCommand(pipelineRunCmd)
}
