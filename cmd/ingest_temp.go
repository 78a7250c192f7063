package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gridsight/heatgrid-cli/internal/ingest"
)

var ingestTempCmd = &cobra.Command{
	Use:   "temp [file]",
	Short: "Ingest an hourly temperature CSV",
	Long: `Ingest an hourly station temperature feed into noaa_hourly_avg.

Expects a CSV with station, hour, and temperature columns. Unparseable
temperature values are stored as NULL; rows missing a station or hour
are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input, err := resolveInput(ctx, cmd, args)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "ingest temp: migrate")
		}

		f, err := os.Open(input)
		if err != nil {
			return eris.Wrapf(err, "ingest temp: open %s", input)
		}
		defer f.Close()

		res, err := ingest.Temps(ctx, st, f)
		if err != nil {
			return eris.Wrap(err, "ingest temp")
		}

		fmt.Printf("Ingested %d rows (%d coerced to NULL, %d skipped)\n",
			res.Rows, res.Coerced, res.Skipped)
		return nil
	},
}

func init() {
	ingestTempCmd.Flags().String("url", "", "download the feed instead of reading a local file")
	ingestCmd.AddCommand(ingestTempCmd)
}
