package ingest

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Himson2006/Yolo-Gpu-2/internal/config"
)

// Command creates the ingest command, which loads detection documents from the
// watch folder (or the given directory) into the record store.
func Command(app *config.Context) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest detection documents from the watch folder",
		Long:  "Parse <dir>/*.json detection documents into events. Events already stored are skipped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := app.Settings.WatchFolder
			if len(args) == 1 {
				dir = args[0]
			}
			if cmd.Flags().Changed("workers") {
				app.Settings.Ingest.Workers = workers
			}

			ctx := cmd.Context()
			if err := app.OpenStore(); err != nil {
				return err
			}
			app.ConnectMQTT(ctx)

			summary, err := app.Ingester().Run(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, ingested %d, skipped %d, failed %d in %s\n",
				summary.Scanned, summary.Ingested, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))
			if summary.Failed > 0 {
				return fmt.Errorf("%d documents failed to ingest", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent document parsers")

	return cmd
}
