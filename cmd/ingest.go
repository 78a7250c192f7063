package main

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load raw hourly feeds into the database",
	Long:  "Appends hourly observations to the raw tables. Rows are kept exactly as delivered; cleanup (deduplication, day truncation) happens in the pipeline stages.",
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// resolveInput returns a local path for the feed: the file argument as-is,
// or a copy of --url downloaded into the configured temp directory.
func resolveInput(ctx context.Context, cmd *cobra.Command, args []string) (string, error) {
	url, _ := cmd.Flags().GetString("url")

	switch {
	case url != "" && len(args) > 0:
		return "", eris.New("ingest: pass either a file argument or --url, not both")
	case url == "" && len(args) == 0:
		return "", eris.New("ingest: a file argument or --url is required")
	case url == "":
		return args[0], nil
	}

	tempDir := cfg.Ingest.TempDir
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "ingest: create temp dir %s", tempDir)
	}

	dest := filepath.Join(tempDir, path.Base(url))
	f := ingest.NewFetcher(ingest.FetchOptions{
		UserAgent:      cfg.Ingest.UserAgent,
		MaxRetries:     cfg.Ingest.MaxRetries,
		RequestsPerSec: cfg.Ingest.RequestsPerSec,
	})
	if err := f.Download(ctx, url, dest); err != nil {
		return "", err
	}

	zap.L().Info("feed downloaded", zap.String("url", url), zap.String("dest", dest))
	return dest, nil
}
