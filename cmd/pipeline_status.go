package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/stage"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

var pipelineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stage run ledger and table row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rl := stage.NewRunLog(st)
		entries, err := rl.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline status")
		}

		if len(entries) == 0 {
			zap.L().Info("no stage runs recorded, run 'pipeline run' to build the derived tables")
			return nil
		}

		formatRunEntries(os.Stdout, entries)

		fmt.Println()
		return formatTableCounts(ctx, os.Stdout, st)
	},
}

func init() {
	pipelineCmd.AddCommand(pipelineStatusCmd)
}

// formatRunEntries writes a tabular representation of ledger entries to w.
func formatRunEntries(out io.Writer, entries []stage.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "-----\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			d := e.CompletedAt.Sub(e.StartedAt).Round(time.Millisecond)
			dur = d.String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Stage,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsWritten,
			errMsg,
		)
	}
	_ = w.Flush()
}

// formatTableCounts writes the row count of every pipeline table to w,
// marking derived tables that do not exist yet.
func formatTableCounts(ctx context.Context, out io.Writer, st *store.Store) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tROWS")
	_, _ = fmt.Fprintln(w, "-----\t----")

	for _, table := range store.Tables {
		exists, err := st.TableExists(ctx, table)
		if err != nil {
			return eris.Wrap(err, "pipeline status: counts")
		}
		if !exists {
			_, _ = fmt.Fprintf(w, "%s\t(absent)\n", table)
			continue
		}
		n, err := st.TableCount(ctx, table)
		if err != nil {
			return eris.Wrap(err, "pipeline status: counts")
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", table, n)
	}
	return w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
