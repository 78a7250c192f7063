package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gridsight/heatgrid-cli/internal/ingest"
)

var ingestLoadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Ingest an hourly electricity-load feed (CSV or XLSX)",
	Long: `Ingest an hourly regional load feed into eia_load_hourly.

Accepts a CSV, or an XLSX workbook as published by the balancing
authorities. Replayed rows are stored as-is; the daily-load stage
deduplicates exact repeats.`,
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
			return eris.Wrap(err, "ingest load: migrate")
		}

		var res *ingest.Result
		if strings.EqualFold(filepath.Ext(input), ".xlsx") {
			res, err = ingest.LoadsXLSX(ctx, st, input)
		} else {
			var f *os.File
			f, err = os.Open(input)
			if err != nil {
				return eris.Wrapf(err, "ingest load: open %s", input)
			}
			defer f.Close()
			res, err = ingest.Loads(ctx, st, f)
		}
		if err != nil {
			return eris.Wrap(err, "ingest load")
		}

		fmt.Printf("Ingested %d rows (%d coerced to NULL, %d skipped)\n",
			res.Rows, res.Coerced, res.Skipped)
		return nil
	},
}

func init() {
	ingestLoadCmd.Flags().String("url", "", "download the feed instead of reading a local file")
	ingestCmd.AddCommand(ingestLoadCmd)
}
