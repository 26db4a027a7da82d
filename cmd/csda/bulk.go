package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nasa-impact/csda-go/internal/bulk"
	"github.com/nasa-impact/csda-go/internal/output"
)

func newBulkDownloadCmd(a *app) *cobra.Command {
	var (
		outDir    string
		workers   int
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "bulk-download <manifest.csv>",
		Short: "Download every asset listed in a CSV manifest",
		Long: `Download every asset listed in a CSV manifest.

The manifest has the columns collection_id,item_id,asset_key and an optional
path. A header row is optional. Files are written to
<out-dir>/<collection_id>/<item_id>/<asset_key> unless a path is given, and
existing files are skipped unless --overwrite is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening manifest: %w", err)
			}
			rows, err := bulk.ParseManifest(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = bulk.DefaultOutDir(time.Now())
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			d := bulk.New(bulk.Config{
				Client:    client,
				OutDir:    outDir,
				Workers:   workers,
				Overwrite: overwrite,
				Logger:    a.logger,
				OnResult: func(r bulk.Result) {
					switch r.Status {
					case bulk.StatusDownloaded:
						output.OK(a.stderr, "%s -> %s", r.Row, r.Path)
					case bulk.StatusSkipped:
						output.Skip(a.stderr, "%s: %s exists", r.Row, r.Path)
					default:
						output.Fail(a.stderr, "%s (line %d): %v", r.Row, r.Row.Line, r.Err)
					}
				},
			})

			_, summary, err := d.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "%d downloaded, %d skipped, %d failed\n",
				summary.Downloaded, summary.Skipped, summary.Failed)
			return summary.Err()
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory (default Order_Downloads_<timestamp>)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of parallel downloads")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Download files that already exist")
	return cmd
}
